// Package ingest 负责把法律文档切分、向量化并写入向量库。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"watson-legal-api/pkg/logger"
)

const (
	defaultChunkSizeRunes    = 1000
	defaultChunkOverlapRunes = 200
	defaultEmbeddingBatch    = 32
)

// ErrVectorDisabled 向量能力未配置。
var ErrVectorDisabled = errors.New("vector capability is disabled")

// Passage 是一段待入库的法律文本块。
type Passage struct {
	ID       string
	Source   string
	Title    string
	ChunkSeq int
	Text     string
	Vector   []float32
}

// VectorRepository 是入库侧对向量库的抽象。
type VectorRepository interface {
	EnsureLegalPassagesCollection(ctx context.Context) error
	DeletePassagesBySource(ctx context.Context, source string) error
	InsertPassages(ctx context.Context, passages []*Passage) error
}

// Indexer 将单篇文档转换为可检索的向量段落。
type Indexer struct {
	embedder embedding.Embedder
	vector   VectorRepository

	embeddingBatchSize int
	chunkSizeRunes     int
	chunkOverlapRunes  int
}

// NewIndexer 创建文档索引器。
func NewIndexer(embedder embedding.Embedder, vectorRepo VectorRepository, chunkSizeRunes, chunkOverlapRunes, embeddingBatchSize int) *Indexer {
	if chunkSizeRunes <= 0 {
		chunkSizeRunes = defaultChunkSizeRunes
	}
	if chunkOverlapRunes < 0 {
		chunkOverlapRunes = defaultChunkOverlapRunes
	}
	if embeddingBatchSize <= 0 {
		embeddingBatchSize = defaultEmbeddingBatch
	}
	return &Indexer{
		embedder:           embedder,
		vector:             vectorRepo,
		embeddingBatchSize: embeddingBatchSize,
		chunkSizeRunes:     chunkSizeRunes,
		chunkOverlapRunes:  chunkOverlapRunes,
	}
}

// Enabled 判断索引能力是否可用。
func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil && i.vector != nil
}

func (i *Indexer) ensureReady(ctx context.Context) error {
	if !i.Enabled() {
		return ErrVectorDisabled
	}
	return i.vector.EnsureLegalPassagesCollection(ctx)
}

// IndexDocument 先删后写，保证同名文档重复入库不产生旧分片残留。
func (i *Indexer) IndexDocument(ctx context.Context, source, title, content string) (int, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("source is required")
	}
	if err := i.ensureReady(ctx); err != nil {
		return 0, err
	}

	if err := i.vector.DeletePassagesBySource(ctx, source); err != nil {
		return 0, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		// 空正文不写索引，但上面的删除已清掉旧分片
		return 0, nil
	}

	chunks := splitByRunes(content, i.chunkSizeRunes, i.chunkOverlapRunes)
	if len(chunks) == 0 {
		return 0, nil
	}

	title = strings.TrimSpace(title)
	embedInputs := make([]string, 0, len(chunks))
	passages := make([]*Passage, 0, len(chunks))
	for seq, chunk := range chunks {
		embedText := chunk
		if title != "" {
			embedText = title + "\n" + chunk
		}
		embedInputs = append(embedInputs, embedText)
		passages = append(passages, &Passage{
			ID:       uuid.NewString(),
			Source:   source,
			Title:    title,
			ChunkSeq: seq,
			Text:     chunk,
		})
	}

	vectors, err := i.embedBatch(ctx, embedInputs)
	if err != nil {
		return 0, err
	}
	for idx := range passages {
		passages[idx].Vector = vectors[idx]
	}

	if err := i.vector.InsertPassages(ctx, passages); err != nil {
		return 0, err
	}
	logger.Info(ctx, "document indexed", "source", source, "chunks", len(passages))
	return len(passages), nil
}

func (i *Indexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if i == nil || i.embedder == nil {
		return nil, ErrVectorDisabled
	}
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += i.embeddingBatchSize {
		end := start + i.embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		v64, err := i.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(v64) != end-start {
			return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(v64), end-start)
		}
		for _, vec := range v64 {
			f32 := make([]float32, 0, len(vec))
			for _, x := range vec {
				f32 = append(f32, float32(x))
			}
			out = append(out, f32)
		}
	}
	return out, nil
}
