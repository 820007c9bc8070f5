package query

import (
	"context"

	"watson-legal-api/pkg/logger"
)

// SearchProvider 是具体网络检索后端的最小抽象。
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// FallbackSearcher 包装检索后端，把失败吸收为降级结果。
// 网络检索永远不会让整个问答流程失败。
type FallbackSearcher struct {
	provider SearchProvider
}

// NewFallbackSearcher 创建容错网络检索器。
func NewFallbackSearcher(provider SearchProvider) *FallbackSearcher {
	return &FallbackSearcher{provider: provider}
}

// Search 执行网络检索，失败时返回空结果并标记降级。
func (s *FallbackSearcher) Search(ctx context.Context, question string) WebSearchResult {
	if s.provider == nil {
		return WebSearchResult{Snippets: []string{}, Degraded: true, Reason: "web search not configured"}
	}

	snippets, err := s.provider.Search(ctx, question)
	if err != nil {
		logger.Warn(ctx, "web search failed, continuing without web results", "error", err)
		return WebSearchResult{Snippets: []string{}, Degraded: true, Reason: err.Error()}
	}
	if snippets == nil {
		snippets = []string{}
	}
	return WebSearchResult{Snippets: snippets}
}
