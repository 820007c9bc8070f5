package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watson-legal-api/internal/config"
)

func newTestClient(url string, maxResults int) *TavilyClient {
	return NewTavilyClient(&config.WebSearchConfig{
		Provider:       "tavily",
		BaseURL:        url,
		APIKey:         "test-key",
		SearchDepth:    "basic",
		MaxResults:     maxResults,
		IncludeDomains: []string{"indiankanoon.org"},
		Timeout:        2 * time.Second,
	})
}

func TestTavilySearchSendsScopedRequest(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Case A", "url": "https://indiankanoon.org/a", "content": "holding text"},
				{"title": "Case B", "url": "https://indiankanoon.org/b"},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	snippets, err := client.Search(context.Background(), "anticipatory bail")

	require.NoError(t, err)
	assert.Equal(t, "test-key", got.APIKey)
	assert.Equal(t, "anticipatory bail", got.Query)
	assert.Equal(t, "basic", got.SearchDepth)
	assert.Equal(t, 3, got.MaxResults)
	assert.Equal(t, []string{"indiankanoon.org"}, got.IncludeDomains)

	// 缺失 content 的结果保留空串，条目不丢失
	require.Len(t, snippets, 2)
	assert.Equal(t, "holding text", snippets[0])
	assert.Equal(t, "", snippets[1])
}

func TestTavilyMaxResultsClamped(t *testing.T) {
	client := newTestClient("http://localhost:0", 50)
	assert.Equal(t, maxResultsCap, client.maxResults)

	client = newTestClient("http://localhost:0", 0)
	assert.Equal(t, defaultMaxResults, client.maxResults)
}

func TestTavilySearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	_, err := client.Search(context.Background(), "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestTavilyMissingAPIKey(t *testing.T) {
	client := NewTavilyClient(&config.WebSearchConfig{})
	_, err := client.Search(context.Background(), "query")
	require.Error(t, err)
}
