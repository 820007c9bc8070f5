package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "watson-legal-api/pkg/errors"
)

func TestSynthesizeUsesQualifyingEvidence(t *testing.T) {
	var captured []*schema.Message
	chatModel := &mockChatModel{
		reply: func(messages []*schema.Message) (string, error) {
			captured = messages
			return "Under Section 420, cheating is punishable.", nil
		},
	}
	factory := &mockFactory{model: chatModel}
	s := NewLLMSynthesizer(factory, "openai", 7.0)

	answer, err := s.Synthesize(context.Background(), SynthesisInput{
		Question:   "What is Section 420?",
		Documents:  []string{"below threshold doc", "qualifying doc"},
		Scores:     []float64{6.9, 7.0},
		WebResults: []string{"web snippet"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Under Section 420, cheating is punishable.", answer)

	require.NotEmpty(t, captured)
	system := captured[0].Content
	assert.NotContains(t, system, "below threshold doc")
	assert.Contains(t, system, "qualifying doc")
	assert.Contains(t, system, "Web Search Results:\nweb snippet")
}

func TestSynthesizeFailureIsFatal(t *testing.T) {
	chatModel := &mockChatModel{
		reply: func([]*schema.Message) (string, error) {
			return "", errors.New("context length exceeded")
		},
	}
	factory := &mockFactory{model: chatModel}
	s := NewLLMSynthesizer(factory, "openai", 7.0)

	_, err := s.Synthesize(context.Background(), SynthesisInput{Question: "q"})

	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeSynthesisFailed, appErr.Code)
}

func TestSynthesizePlaceholderWhenNoEvidence(t *testing.T) {
	var captured []*schema.Message
	chatModel := &mockChatModel{
		reply: func(messages []*schema.Message) (string, error) {
			captured = messages
			return "I could not find reliable sources.", nil
		},
	}
	factory := &mockFactory{model: chatModel}
	s := NewLLMSynthesizer(factory, "openai", 7.0)

	_, err := s.Synthesize(context.Background(), SynthesisInput{Question: "q"})
	require.NoError(t, err)

	require.NotEmpty(t, captured)
	assert.True(t, strings.Contains(captured[0].Content, NoSourcesPlaceholder))
}

func TestFallbackSearcherAbsorbsErrors(t *testing.T) {
	s := NewFallbackSearcher(&failingProvider{})

	result := s.Search(context.Background(), "question")

	assert.True(t, result.Degraded)
	assert.NotNil(t, result.Snippets)
	assert.Empty(t, result.Snippets)
}

func TestFallbackSearcherNilProvider(t *testing.T) {
	s := NewFallbackSearcher(nil)

	result := s.Search(context.Background(), "question")

	assert.True(t, result.Degraded)
	assert.NotNil(t, result.Snippets)
}

type failingProvider struct{}

func (f *failingProvider) Search(ctx context.Context, query string) ([]string, error) {
	return nil, errors.New("search provider unavailable")
}
