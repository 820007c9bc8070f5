package query

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	vectors [][]float64
	err     error
}

func (m *mockEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vectors, nil
}

type mockVectorSearcher struct {
	hits []PassageHit
	err  error
}

func (m *mockVectorSearcher) SearchPassages(ctx context.Context, queryVector []float32, topK int) ([]PassageHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	if topK < len(m.hits) {
		return m.hits[:topK], nil
	}
	return m.hits, nil
}

func TestLocalRetrieverReturnsPassages(t *testing.T) {
	embedder := &mockEmbedder{vectors: [][]float64{{0.1, 0.2}}}
	searcher := &mockVectorSearcher{hits: []PassageHit{
		{ID: "p1", Text: "Section 420 deals with cheating", Score: 0.92},
		{ID: "p2", Text: "  ", Score: 0.80},
		{ID: "p3", Text: "Punishment extends to seven years", Score: 0.71},
	}}
	r := NewLocalRetriever(embedder, searcher)

	result := r.Retrieve(context.Background(), "what is section 420", 4)

	assert.False(t, result.Degraded)
	// 空白段落被丢弃
	require.Len(t, result.Passages, 2)
	assert.Equal(t, "Section 420 deals with cheating", result.Passages[0])
}

func TestLocalRetrieverDegradesOnSearchError(t *testing.T) {
	embedder := &mockEmbedder{vectors: [][]float64{{0.1}}}
	searcher := &mockVectorSearcher{err: errors.New("milvus down")}
	r := NewLocalRetriever(embedder, searcher)

	result := r.Retrieve(context.Background(), "question", 4)

	assert.True(t, result.Degraded)
	assert.NotNil(t, result.Passages)
	assert.Empty(t, result.Passages)
}

func TestLocalRetrieverDegradesOnEmbedError(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("embedding service unavailable")}
	r := NewLocalRetriever(embedder, &mockVectorSearcher{})

	result := r.Retrieve(context.Background(), "question", 4)

	assert.True(t, result.Degraded)
	assert.Empty(t, result.Passages)
}

func TestLocalRetrieverDisabledWithoutVector(t *testing.T) {
	r := NewLocalRetriever(nil, nil)

	assert.False(t, r.Enabled())

	result := r.Retrieve(context.Background(), "question", 4)
	assert.True(t, result.Degraded)
	assert.Empty(t, result.Passages)
}
