package query

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContextBlockThreshold(t *testing.T) {
	docs := []string{"low relevance doc", "high relevance doc"}
	scores := []float64{6.9, 7.0}

	block := BuildContextBlock(docs, scores, nil, 7.0)

	assert.NotContains(t, block, "low relevance doc")
	assert.Contains(t, block, "[Relevance: 7.0/10]\nhigh relevance doc")
}

func TestBuildContextBlockWebResults(t *testing.T) {
	block := BuildContextBlock(nil, nil, []string{"snippet one", "snippet two"}, 7.0)

	assert.Contains(t, block, "Web Search Results:\nsnippet one\nsnippet two")
	assert.NotContains(t, block, NoSourcesPlaceholder)
}

func TestBuildContextBlockMixedSections(t *testing.T) {
	docs := []string{"statute text"}
	scores := []float64{8.5}
	web := []string{"case law snippet"}

	block := BuildContextBlock(docs, scores, web, 7.0)

	parts := strings.Split(block, "\n\n---\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "statute text")
	assert.Contains(t, parts[1], "Web Search Results:")
}

func TestBuildContextBlockPlaceholder(t *testing.T) {
	block := BuildContextBlock([]string{"doc"}, []float64{2.0}, nil, 7.0)
	assert.Equal(t, NoSourcesPlaceholder, block)

	block = BuildContextBlock(nil, nil, nil, 7.0)
	assert.Equal(t, NoSourcesPlaceholder, block)
}

func TestBuildContextBlockMismatchedLengths(t *testing.T) {
	// 分数少于文档时只消费成对的部分
	docs := []string{"doc a", "doc b", "doc c"}
	scores := []float64{9.0}

	block := BuildContextBlock(docs, scores, nil, 7.0)

	assert.Contains(t, block, "doc a")
	assert.NotContains(t, block, "doc b")
	assert.NotContains(t, block, "doc c")
}

func TestAssistantMessagesRendersContext(t *testing.T) {
	msgs, err := AssistantMessages(context.Background(), "some evidence", "What is Section 420?")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Contains(t, msgs[0].Content, "Watson")
	assert.Contains(t, msgs[0].Content, "some evidence")
	assert.Equal(t, "What is Section 420?", msgs[1].Content)
}

func TestScoringMessagesRendersDocument(t *testing.T) {
	msgs, err := ScoringMessages(context.Background(), "bail provisions", "Section 437 of CrPC")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Contains(t, msgs[0].Content, "0-10")
	assert.Contains(t, msgs[1].Content, "Query: bail provisions")
	assert.Contains(t, msgs[1].Content, "Document: Section 437 of CrPC")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "ab", truncateRunes("abcd", 2))
	assert.Equal(t, "abcd", truncateRunes("abcd", 0))
	// 多字节 rune 不被截断成半个字符
	assert.Equal(t, "判例", truncateRunes("判例法", 2))
}
