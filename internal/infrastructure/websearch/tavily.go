// Package websearch 提供外部搜索提供商客户端。
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"watson-legal-api/internal/config"
	"watson-legal-api/pkg/metrics"
)

var tracer = otel.Tracer("websearch")

const (
	defaultBaseURL     = "https://api.tavily.com"
	defaultSearchDepth = "basic"
	defaultMaxResults  = 3
	maxResultsCap      = 5
	defaultTimeout     = 5 * time.Second
)

// TavilyClient Tavily 搜索客户端
type TavilyClient struct {
	baseURL        string
	apiKey         string
	searchDepth    string
	maxResults     int
	includeDomains []string
	httpClient     *http.Client
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewTavilyClient 创建 Tavily 搜索客户端
func NewTavilyClient(cfg *config.WebSearchConfig) *TavilyClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	depth := cfg.SearchDepth
	if depth == "" {
		depth = defaultSearchDepth
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TavilyClient{
		baseURL:        baseURL,
		apiKey:         cfg.APIKey,
		searchDepth:    depth,
		maxResults:     maxResults,
		includeDomains: cfg.IncludeDomains,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search 执行一次搜索，返回每条结果的正文摘要。
// 缺失正文的结果保留为空字符串以保持条目对齐。
func (c *TavilyClient) Search(ctx context.Context, query string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "websearch.Search")
	defer span.End()

	start := time.Now()
	snippets, err := c.doSearch(ctx, query)
	metrics.WebSearchDuration.WithLabelValues("tavily").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WebSearchTotal.WithLabelValues("tavily", "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	metrics.WebSearchTotal.WithLabelValues("tavily", "success").Inc()
	span.SetAttributes(attribute.Int("result_count", len(snippets)))
	return snippets, nil
}

func (c *TavilyClient) doSearch(ctx context.Context, query string) ([]string, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("web search api key is empty")
	}

	reqBody, err := json.Marshal(&searchRequest{
		APIKey:         c.apiKey,
		Query:          query,
		SearchDepth:    c.searchDepth,
		MaxResults:     c.maxResults,
		IncludeDomains: c.includeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("search request failed: status=%d", httpResp.StatusCode)
	}

	var resp searchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	snippets := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippets = append(snippets, r.Content)
	}
	return snippets, nil
}
