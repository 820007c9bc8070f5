package query

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	einoobs "watson-legal-api/internal/observability/eino"
	"watson-legal-api/internal/workflow/port"
	"watson-legal-api/pkg/logger"
	"watson-legal-api/pkg/metrics"
)

// neutralScore 解析失败或模型调用失败时的中性兜底分。
const neutralScore = 5.0

// firstNumberRe 匹配模型输出中的第一个数值片段。
var firstNumberRe = regexp.MustCompile(`\d+(\.\d+)?`)

// LLMScorer 使用聊天模型逐篇评估段落与问题的相关性。
// 每篇文档独立调用，失败只降级该篇的分数，不影响整体流程。
type LLMScorer struct {
	factory     port.ChatModelFactory
	provider    string
	workers     int
	timeout     time.Duration
	prefixRunes int
	threshold   float64
}

// NewLLMScorer 创建相关性评分器。
func NewLLMScorer(factory port.ChatModelFactory, provider string, workers int, timeout time.Duration, prefixRunes int, threshold float64) *LLMScorer {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if prefixRunes <= 0 {
		prefixRunes = 500
	}
	return &LLMScorer{
		factory:     factory,
		provider:    provider,
		workers:     workers,
		timeout:     timeout,
		prefixRunes: prefixRunes,
		threshold:   threshold,
	}
}

// Score 并发评估全部文档，按输入顺序返回分数。
// 返回的 Scores 与 Fallback 长度恒等于 len(documents)。
func (s *LLMScorer) Score(ctx context.Context, question string, documents []string) ScoreResult {
	scores := make([]float64, len(documents))
	fallback := make([]bool, len(documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range documents {
		i := i
		g.Go(func() error {
			scores[i], fallback[i] = s.scoreOne(gctx, question, documents[i])
			return nil
		})
	}
	// 单篇失败已在 scoreOne 内兜底，不会返回错误
	_ = g.Wait()

	for i := range fallback {
		if fallback[i] {
			metrics.QueryScoreFallbackTotal.Inc()
		}
	}

	return ScoreResult{
		Scores:   scores,
		Fallback: fallback,
		NeedsWeb: NeedsWebSearch(scores, s.threshold),
	}
}

// scoreOne 评估单篇文档，任何失败都回退为中性分。
func (s *LLMScorer) scoreOne(ctx context.Context, question, document string) (float64, bool) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	callCtx = einoobs.WithWorkflowProvider(callCtx, "score", s.provider)

	msgs, err := ScoringMessages(callCtx, question, truncateRunes(document, s.prefixRunes))
	if err != nil {
		logger.Warn(ctx, "render scoring prompt failed, using neutral score", "error", err)
		return neutralScore, true
	}

	chatModel, err := s.factory.Get(callCtx, s.provider)
	if err != nil {
		logger.Warn(ctx, "get chat model failed, using neutral score", "error", err)
		return neutralScore, true
	}

	resp, err := chatModel.Generate(callCtx, msgs)
	if err != nil {
		logger.Warn(ctx, "relevance scoring call failed, using neutral score", "error", err)
		return neutralScore, true
	}

	return parseScore(resp.Content)
}

// parseScore 从模型输出中提取第一个数值并裁剪到 [0, 10]。
// 找不到数值时返回中性分并标记兜底。
func parseScore(content string) (float64, bool) {
	match := firstNumberRe.FindString(content)
	if match == "" {
		return neutralScore, true
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return neutralScore, true
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, false
}
