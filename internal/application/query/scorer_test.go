package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChatModel 按文档内容回放固定输出
type mockChatModel struct {
	reply func(messages []*schema.Message) (string, error)
}

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	content, err := m.reply(input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type mockFactory struct {
	model model.BaseChatModel
	err   error
	calls atomic.Int32
}

func (f *mockFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantScore    float64
		wantFallback bool
	}{
		{name: "plain number", content: "8", wantScore: 8},
		{name: "decimal", content: "7.5", wantScore: 7.5},
		{name: "number in prose", content: "relevant, I'd say around 6", wantScore: 6},
		{name: "clamped above ten", content: "Score: 15", wantScore: 10},
		{name: "no digits", content: "highly relevant", wantScore: 5, wantFallback: true},
		{name: "empty", content: "", wantScore: 5, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, fallback := parseScore(tt.content)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantFallback, fallback)
		})
	}
}

func TestNeedsWebSearch(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   bool
	}{
		{name: "no documents", scores: nil, want: true},
		{name: "all below threshold", scores: []float64{3, 5, 6.9}, want: true},
		{name: "one at threshold", scores: []float64{3, 7.0}, want: false},
		{name: "all above", scores: []float64{8, 9.5}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsWebSearch(tt.scores, 7.0))
		})
	}
}

func TestLLMScorerPreservesOrder(t *testing.T) {
	// 每篇文档自带分数，模型按文档内容回读
	chatModel := &mockChatModel{
		reply: func(messages []*schema.Message) (string, error) {
			user := messages[len(messages)-1].Content
			for i := 0; i < 10; i++ {
				if strings.Contains(user, fmt.Sprintf("doc-%d", i)) {
					return fmt.Sprintf("%d", i), nil
				}
			}
			return "", errors.New("unknown document")
		},
	}
	factory := &mockFactory{model: chatModel}
	scorer := NewLLMScorer(factory, "openai", 3, time.Second, 500, 7.0)

	docs := []string{"doc-4 text", "doc-9 text", "doc-1 text", "doc-7 text"}
	result := scorer.Score(context.Background(), "question", docs)

	require.Len(t, result.Scores, len(docs))
	require.Len(t, result.Fallback, len(docs))
	assert.Equal(t, []float64{4, 9, 1, 7}, result.Scores)
	assert.False(t, result.NeedsWeb)
}

func TestLLMScorerFallsBackOnModelError(t *testing.T) {
	factory := &mockFactory{err: errors.New("provider down")}
	scorer := NewLLMScorer(factory, "openai", 2, time.Second, 500, 7.0)

	result := scorer.Score(context.Background(), "question", []string{"a", "b"})

	require.Len(t, result.Scores, 2)
	assert.Equal(t, []float64{neutralScore, neutralScore}, result.Scores)
	assert.Equal(t, []bool{true, true}, result.Fallback)
	// 中性分低于阈值，触发网络兜底
	assert.True(t, result.NeedsWeb)
}

func TestLLMScorerEmptyDocuments(t *testing.T) {
	factory := &mockFactory{model: &mockChatModel{reply: func([]*schema.Message) (string, error) {
		return "9", nil
	}}}
	scorer := NewLLMScorer(factory, "openai", 2, time.Second, 500, 7.0)

	result := scorer.Score(context.Background(), "question", nil)

	assert.Empty(t, result.Scores)
	assert.True(t, result.NeedsWeb)
	assert.Zero(t, factory.calls.Load())
}
