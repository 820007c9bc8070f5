package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watson-legal-api/internal/application/query"
	"watson-legal-api/internal/interfaces/http/dto"
	apperrors "watson-legal-api/pkg/errors"
)

type stubWorkflow struct {
	state *query.SessionState
	err   error
	calls int
}

func (s *stubWorkflow) Run(ctx context.Context, question string) (*query.SessionState, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.state, nil
}

func performQuery(t *testing.T, workflow QueryWorkflow, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewQueryHandler(workflow, nil, 0)
	engine := gin.New()
	engine.POST("/query", h.Query)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestQueryReturnsAnswer(t *testing.T) {
	state := query.NewSessionState("what is section 420")
	state.Documents = []string{"doc1", "doc2", "doc3", "doc4"}
	state.RelevanceScores = []float64{8, 7.5, 9, 6}
	state.Answer = "Section 420 covers cheating."

	w := performQuery(t, &stubWorkflow{state: state}, `{"question":"what is section 420"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Section 420 covers cheating.", resp.Answer)
	// 证据最多返回三条
	assert.Equal(t, []string{"doc1", "doc2", "doc3"}, resp.Sources)
	assert.Equal(t, []float64{8, 7.5, 9, 6}, resp.RelevanceScores)
	assert.False(t, resp.UsedWebSearch)
}

func TestQueryUsedWebSearchFlag(t *testing.T) {
	state := query.NewSessionState("obscure question")
	state.NeedsWeb = true
	state.WebResults = []string{"web snippet"}
	state.Answer = "web-based answer"

	w := performQuery(t, &stubWorkflow{state: state}, `{"question":"obscure question"}`)

	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.UsedWebSearch)
	// 网络摘要没有评分，不得出现在 sources 里
	assert.Empty(t, resp.Sources)
	assert.Empty(t, resp.RelevanceScores)
}

func TestQueryWebTriggeredButNoResults(t *testing.T) {
	state := query.NewSessionState("q")
	state.NeedsWeb = true
	state.WebResults = []string{}
	state.Answer = "best effort answer"

	w := performQuery(t, &stubWorkflow{state: state}, `{"question":"q"}`)

	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// 触发了兜底但没拿到结果，不声称使用了网络检索
	assert.False(t, resp.UsedWebSearch)
}

func TestQueryRejectsMissingQuestion(t *testing.T) {
	wf := &stubWorkflow{}

	w := performQuery(t, wf, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performQuery(t, wf, `{"question":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, wf.calls)
}

func TestQueryRejectsOverlongQuestion(t *testing.T) {
	wf := &stubWorkflow{}
	long := strings.Repeat("a", maxQuestionRunes+1)

	w := performQuery(t, wf, `{"question":"`+long+`"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, wf.calls)
}

func TestQueryWorkflowErrorMapped(t *testing.T) {
	wf := &stubWorkflow{err: apperrors.New(apperrors.CodeSynthesisFailed, "answer synthesis failed")}

	w := performQuery(t, wf, `{"question":"valid question"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(apperrors.CodeSynthesisFailed), resp.Error.ErrorCode)
}

func TestQuerySourcesExcludeWebSnippets(t *testing.T) {
	state := query.NewSessionState("partially covered question")
	state.Documents = []string{"doc1"}
	state.RelevanceScores = []float64{3}
	state.NeedsWeb = true
	state.WebResults = []string{"web snippet 1", "web snippet 2"}
	state.Answer = "combined answer"

	w := performQuery(t, &stubWorkflow{state: state}, `{"question":"partially covered question"}`)

	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// sources 与 relevance_scores 下标对应，只含本地段落
	assert.Equal(t, []string{"doc1"}, resp.Sources)
	assert.Equal(t, []float64{3}, resp.RelevanceScores)
	assert.True(t, resp.UsedWebSearch)
}

func TestAnswerCacheKeyNormalization(t *testing.T) {
	a := answerCacheKey("What is  Section 420?")
	b := answerCacheKey("  what is section 420?  ")
	c := answerCacheKey("what is section 421?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "answer:"))
}

func TestCacheOutcome(t *testing.T) {
	// 搭车等待回源的并发请求没有读到 Redis，不能算 hit
	assert.Equal(t, "miss", cacheOutcome(true, false))
	assert.Equal(t, "miss", cacheOutcome(true, true))
	assert.Equal(t, "shared", cacheOutcome(false, true))
	assert.Equal(t, "hit", cacheOutcome(false, false))
}
