package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	dim     int
	shortBy int // 每批少返回的向量数，模拟异常的服务端响应
	batches [][]string
}

func (s *stubEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	s.batches = append(s.batches, texts)
	n := len(texts) - s.shortBy
	if n < 0 {
		n = 0
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, s.dim)
	}
	return out, nil
}

type stubVectorRepo struct {
	ensured  int
	deleted  []string
	inserted []*Passage
}

func (s *stubVectorRepo) EnsureLegalPassagesCollection(ctx context.Context) error {
	s.ensured++
	return nil
}

func (s *stubVectorRepo) DeletePassagesBySource(ctx context.Context, source string) error {
	s.deleted = append(s.deleted, source)
	return nil
}

func (s *stubVectorRepo) InsertPassages(ctx context.Context, passages []*Passage) error {
	s.inserted = append(s.inserted, passages...)
	return nil
}

func TestIndexDocumentDeleteThenInsert(t *testing.T) {
	repo := &stubVectorRepo{}
	indexer := NewIndexer(&stubEmbedder{dim: 4}, repo, 100, 20, 32)

	content := strings.Repeat("कानून ", 50) // ~300 runes
	chunks, err := indexer.IndexDocument(context.Background(), "ipc.pdf", "Indian Penal Code", content)

	require.NoError(t, err)
	assert.Greater(t, chunks, 1)
	assert.Equal(t, []string{"ipc.pdf"}, repo.deleted)
	require.Len(t, repo.inserted, chunks)

	for i, p := range repo.inserted {
		assert.Equal(t, "ipc.pdf", p.Source)
		assert.Equal(t, "Indian Penal Code", p.Title)
		assert.Equal(t, i, p.ChunkSeq)
		assert.NotEmpty(t, p.ID)
		assert.Len(t, p.Vector, 4)
	}
}

func TestIndexDocumentEmptyContentStillDeletes(t *testing.T) {
	repo := &stubVectorRepo{}
	indexer := NewIndexer(&stubEmbedder{dim: 4}, repo, 100, 20, 32)

	chunks, err := indexer.IndexDocument(context.Background(), "old.pdf", "Old Doc", "   ")

	require.NoError(t, err)
	assert.Zero(t, chunks)
	// 旧分片清理仍然执行
	assert.Equal(t, []string{"old.pdf"}, repo.deleted)
	assert.Empty(t, repo.inserted)
}

func TestIndexDocumentRequiresSource(t *testing.T) {
	indexer := NewIndexer(&stubEmbedder{dim: 4}, &stubVectorRepo{}, 100, 20, 32)

	_, err := indexer.IndexDocument(context.Background(), " ", "t", "content")
	require.Error(t, err)
}

func TestIndexDocumentBatchesEmbeddings(t *testing.T) {
	emb := &stubEmbedder{dim: 2}
	repo := &stubVectorRepo{}
	// 批大小 2，切出 5 块 → 3 个批次
	indexer := NewIndexer(emb, repo, 100, 0, 2)

	content := strings.Repeat("x", 450)
	chunks, err := indexer.IndexDocument(context.Background(), "doc.txt", "", content)

	require.NoError(t, err)
	require.Equal(t, 5, chunks)
	assert.Len(t, emb.batches, 3)
}

func TestIndexDocumentRejectsShortEmbeddingBatch(t *testing.T) {
	emb := &stubEmbedder{dim: 2, shortBy: 1}
	repo := &stubVectorRepo{}
	indexer := NewIndexer(emb, repo, 100, 0, 32)

	content := strings.Repeat("x", 250)
	_, err := indexer.IndexDocument(context.Background(), "doc.txt", "", content)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vectors")
	// 数量对不上时不能写入任何分片
	assert.Empty(t, repo.inserted)
}

func TestIndexerDisabledWithoutEmbedder(t *testing.T) {
	indexer := NewIndexer(nil, &stubVectorRepo{}, 100, 20, 32)
	assert.False(t, indexer.Enabled())

	_, err := indexer.IndexDocument(context.Background(), "doc.pdf", "", "content")
	assert.ErrorIs(t, err, ErrVectorDisabled)
}
