package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"watson-legal-api/internal/application/query"
	"watson-legal-api/internal/infrastructure/persistence/redis"
	"watson-legal-api/internal/interfaces/http/dto"
	apperrors "watson-legal-api/pkg/errors"
	"watson-legal-api/pkg/logger"
	"watson-legal-api/pkg/metrics"
)

// maxSourcesReturned 响应中返回的证据条数上限
const maxSourcesReturned = 3

// maxQuestionRunes 问题长度上限，超长请求直接拒绝
const maxQuestionRunes = 4000

// QueryWorkflow 问答工作流入口
type QueryWorkflow interface {
	Run(ctx context.Context, question string) (*query.SessionState, error)
}

// QueryHandler 法律问答处理器
type QueryHandler struct {
	workflow QueryWorkflow
	cache    *redis.Cache
	cacheTTL time.Duration
}

// NewQueryHandler 创建问答处理器
func NewQueryHandler(workflow QueryWorkflow, cache *redis.Cache, cacheTTL time.Duration) *QueryHandler {
	return &QueryHandler{
		workflow: workflow,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Query 处理法律问答请求
func (h *QueryHandler) Query(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "question is required")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		dto.BadRequest(c, "question is required")
		return
	}
	if utf8.RuneCountInString(question) > maxQuestionRunes {
		dto.BadRequest(c, "question is too long")
		return
	}

	ctx := c.Request.Context()

	if !h.cacheEnabled() {
		state, err := h.workflow.Run(ctx, question)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, buildQueryResponse(state))
		return
	}

	// 读穿缓存，相同问题的并发请求只跑一次工作流
	loaded := false
	data, shared, err := h.cache.GetOrLoad(ctx, answerCacheKey(question), h.cacheTTL, func() (any, error) {
		loaded = true
		state, err := h.workflow.Run(ctx, question)
		if err != nil {
			return nil, err
		}
		return buildQueryResponse(state), nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	metrics.AnswerCacheTotal.WithLabelValues(cacheOutcome(loaded, shared)).Inc()
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *QueryHandler) cacheEnabled() bool {
	return h != nil && h.cache != nil && h.cacheTTL > 0
}

// cacheOutcome 区分三种结果：执行了回源的是 miss，搭同一次回源便车的
// 并发请求是 shared，从 Redis 直接读到的才算 hit。
func cacheOutcome(loaded, shared bool) string {
	switch {
	case loaded:
		return "miss"
	case shared:
		return "shared"
	default:
		return "hit"
	}
}

func (h *QueryHandler) writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	appErr := apperrors.AsAppError(err)
	logger.Error(ctx, "query failed", err, "code", string(appErr.Code))
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
	})
}

// buildQueryResponse 把工作流终态转换为响应体。
// sources 只取本地召回段落的前几条，与 relevance_scores 按下标对应；
// 网络摘要不混入，它们没有评分。
func buildQueryResponse(state *query.SessionState) dto.QueryResponse {
	sources := make([]string, 0, maxSourcesReturned)
	for _, doc := range state.Documents {
		if len(sources) >= maxSourcesReturned {
			break
		}
		sources = append(sources, doc)
	}

	scores := state.RelevanceScores
	if scores == nil {
		scores = []float64{}
	}

	return dto.QueryResponse{
		Answer:          state.Answer,
		Sources:         sources,
		RelevanceScores: scores,
		UsedWebSearch:   state.NeedsWeb && len(state.WebResults) > 0,
	}
}

// answerCacheKey 基于规范化问题生成缓存键。
func answerCacheKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "answer:" + hex.EncodeToString(sum[:])
}
