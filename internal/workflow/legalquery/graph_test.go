package legalquery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watson-legal-api/internal/application/query"
)

type stubRetriever struct {
	passages []string
	degraded bool
	calls    int
}

func (s *stubRetriever) Retrieve(ctx context.Context, question string, k int) query.RetrieveResult {
	s.calls++
	return query.RetrieveResult{Passages: s.passages, Degraded: s.degraded}
}

type stubScorer struct {
	scores    []float64
	threshold float64
	calls     int
}

func (s *stubScorer) Score(ctx context.Context, question string, documents []string) query.ScoreResult {
	s.calls++
	return query.ScoreResult{
		Scores:   s.scores,
		Fallback: make([]bool, len(s.scores)),
		NeedsWeb: query.NeedsWebSearch(s.scores, s.threshold),
	}
}

type stubWebSearcher struct {
	snippets []string
	calls    int
}

func (s *stubWebSearcher) Search(ctx context.Context, question string) query.WebSearchResult {
	s.calls++
	return query.WebSearchResult{Snippets: s.snippets}
}

type stubSynthesizer struct {
	answer string
	err    error
	inputs []query.SynthesisInput
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, in query.SynthesisInput) (string, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func newTestWorkflow(retriever *stubRetriever, scorer *stubScorer, web *stubWebSearcher, synth *stubSynthesizer) *Workflow {
	return NewWorkflow(retriever, scorer, web, synth, 4)
}

func TestWorkflowSkipsWebSearchOnHighScores(t *testing.T) {
	retriever := &stubRetriever{passages: []string{"doc1", "doc2"}}
	scorer := &stubScorer{scores: []float64{8, 9}, threshold: 7.0}
	web := &stubWebSearcher{snippets: []string{"should not appear"}}
	synth := &stubSynthesizer{answer: "direct answer"}

	w := newTestWorkflow(retriever, scorer, web, synth)
	state, err := w.Run(context.Background(), "question")

	require.NoError(t, err)
	assert.Equal(t, "direct answer", state.Answer)
	assert.False(t, state.NeedsWeb)
	assert.Zero(t, web.calls)
	assert.Empty(t, state.WebResults)
}

func TestWorkflowFallsBackToWebOnLowScores(t *testing.T) {
	retriever := &stubRetriever{passages: []string{"doc1"}}
	scorer := &stubScorer{scores: []float64{3}, threshold: 7.0}
	web := &stubWebSearcher{snippets: []string{"web evidence"}}
	synth := &stubSynthesizer{answer: "answer with web"}

	w := newTestWorkflow(retriever, scorer, web, synth)
	state, err := w.Run(context.Background(), "question")

	require.NoError(t, err)
	assert.True(t, state.NeedsWeb)
	assert.Equal(t, 1, web.calls)
	assert.Equal(t, []string{"web evidence"}, state.WebResults)

	// 合成阶段能同时看到本地与网络证据
	require.Len(t, synth.inputs, 1)
	assert.Equal(t, []string{"doc1"}, synth.inputs[0].Documents)
	assert.Equal(t, []string{"web evidence"}, synth.inputs[0].WebResults)
}

func TestWorkflowEmptyIndexTriggersWeb(t *testing.T) {
	retriever := &stubRetriever{passages: []string{}, degraded: true}
	scorer := &stubScorer{scores: []float64{}, threshold: 7.0}
	web := &stubWebSearcher{snippets: []string{"only web"}}
	synth := &stubSynthesizer{answer: "web only answer"}

	w := newTestWorkflow(retriever, scorer, web, synth)
	state, err := w.Run(context.Background(), "question")

	require.NoError(t, err)
	assert.True(t, state.NeedsWeb)
	assert.True(t, state.RetrievalDegraded)
	assert.Equal(t, 1, web.calls)
	assert.Equal(t, "web only answer", state.Answer)
}

func TestWorkflowSynthesisErrorPropagates(t *testing.T) {
	retriever := &stubRetriever{passages: []string{"doc"}}
	scorer := &stubScorer{scores: []float64{9}, threshold: 7.0}
	web := &stubWebSearcher{}
	synth := &stubSynthesizer{err: errors.New("model failure")}

	w := newTestWorkflow(retriever, scorer, web, synth)
	_, err := w.Run(context.Background(), "question")

	require.Error(t, err)
}

func TestWorkflowRejectsEmptyQuestion(t *testing.T) {
	w := newTestWorkflow(&stubRetriever{}, &stubScorer{}, &stubWebSearcher{}, &stubSynthesizer{})

	_, err := w.Run(context.Background(), "   ")

	assert.ErrorIs(t, err, query.ErrEmptyQuestion)
}

func TestWorkflowReusableAcrossRuns(t *testing.T) {
	retriever := &stubRetriever{passages: []string{"doc"}}
	scorer := &stubScorer{scores: []float64{9}, threshold: 7.0}
	synth := &stubSynthesizer{answer: "answer"}

	w := newTestWorkflow(retriever, scorer, &stubWebSearcher{}, synth)

	for i := 0; i < 3; i++ {
		state, err := w.Run(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "answer", state.Answer)
	}
	assert.Equal(t, 3, retriever.calls)
	assert.Equal(t, 3, scorer.calls)
}
