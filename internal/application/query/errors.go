package query

import "errors"

var (
	// ErrVectorDisabled 表示向量检索能力未配置（Milvus 或 Embedder 不可用）。
	ErrVectorDisabled = errors.New("vector retrieval is disabled")

	// ErrEmptyQuestion 表示提问为空。
	ErrEmptyQuestion = errors.New("question is empty")
)
