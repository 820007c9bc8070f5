package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"watson-legal-api/pkg/logger"
)

const defaultTopK = 4

// LocalRetriever 基于向量库的证据召回。
// 失败策略：任何底层错误都被吸收为"零结果"，绝不中断流水线。
type LocalRetriever struct {
	embedder embedding.Embedder
	vector   VectorSearcher
}

// NewLocalRetriever 创建证据召回组件。
func NewLocalRetriever(embedder embedding.Embedder, vector VectorSearcher) *LocalRetriever {
	return &LocalRetriever{
		embedder: embedder,
		vector:   vector,
	}
}

// Enabled 向量检索是否可用。
func (r *LocalRetriever) Enabled() bool {
	return r != nil && r.embedder != nil && r.vector != nil
}

// Retrieve 返回与 question 最相似的至多 k 条段落，相似度降序。
// 索引为空、未初始化或检索出错时返回空结果并标记降级。
func (r *LocalRetriever) Retrieve(ctx context.Context, question string, k int) RetrieveResult {
	if k <= 0 {
		k = defaultTopK
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return RetrieveResult{Passages: []string{}, Degraded: true, Reason: ErrEmptyQuestion.Error()}
	}
	if !r.Enabled() {
		return RetrieveResult{Passages: []string{}, Degraded: true, Reason: ErrVectorDisabled.Error()}
	}

	vec, err := r.embedQuestion(ctx, question)
	if err != nil {
		logger.Warn(ctx, "retrieval degraded: embedding failed", "error", err.Error())
		return RetrieveResult{Passages: []string{}, Degraded: true, Reason: err.Error()}
	}

	hits, err := r.vector.SearchPassages(ctx, vec, k)
	if err != nil {
		logger.Warn(ctx, "retrieval degraded: vector search failed", "error", err.Error())
		return RetrieveResult{Passages: []string{}, Degraded: true, Reason: err.Error()}
	}

	passages := make([]string, 0, len(hits))
	for _, h := range hits {
		text := strings.TrimSpace(h.Text)
		if text == "" {
			continue
		}
		passages = append(passages, text)
	}
	return RetrieveResult{Passages: passages}
}

func (r *LocalRetriever) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	v64, err := r.embedder.EmbedStrings(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(v64) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	vec := v64[0]
	out := make([]float32, 0, len(vec))
	for _, x := range vec {
		out = append(out, float32(x))
	}
	return out, nil
}
