package query

import "context"

// PassageHit 向量检索命中的一条文档段落。
type PassageHit struct {
	ID     string
	Text   string
	Source string
	// Score 相似度，越大越相似
	Score float64
}

// VectorSearcher 定义召回阶段对向量库的最小依赖（port）。
type VectorSearcher interface {
	SearchPassages(ctx context.Context, queryVector []float32, topK int) ([]PassageHit, error)
}
