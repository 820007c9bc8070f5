// Package legalquery 用 eino 图编排法律问答工作流：
// 检索 -> 评分 -> (条件) 网络补充 -> 生成。
package legalquery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"

	"watson-legal-api/internal/application/query"
	apperrors "watson-legal-api/pkg/errors"
	"watson-legal-api/pkg/logger"
	"watson-legal-api/pkg/metrics"
	"watson-legal-api/pkg/tracer"
)

// 图节点名称
const (
	nodeRetrieve  = "retrieve"
	nodeScore     = "score"
	nodeWebSearch = "web_search"
	nodeGenerate  = "generate"
)

// Workflow 持有四个阶段的实现并负责图的编译与执行。
type Workflow struct {
	retriever   query.Retriever
	scorer      query.Scorer
	webSearcher query.WebSearcher
	synthesizer query.Synthesizer
	topK        int

	compileOnce sync.Once
	compiled    compose.Runnable[string, *query.SessionState]
	compileErr  error
}

// NewWorkflow 创建问答工作流。
func NewWorkflow(retriever query.Retriever, scorer query.Scorer, webSearcher query.WebSearcher, synthesizer query.Synthesizer, topK int) *Workflow {
	if topK <= 0 {
		topK = 4
	}
	return &Workflow{
		retriever:   retriever,
		scorer:      scorer,
		webSearcher: webSearcher,
		synthesizer: synthesizer,
		topK:        topK,
	}
}

// Run 执行完整工作流并返回终态。
func (w *Workflow) Run(ctx context.Context, question string) (*query.SessionState, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, query.ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "legalquery.Run")
	defer span.End()

	runnable, err := w.compile(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "compile query workflow failed")
	}

	state, err := runnable.Invoke(ctx, question)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.QueryTotal.WithLabelValues("success").Inc()
	return state, nil
}

// compile 首次调用时构建并编译图，之后复用结果。
func (w *Workflow) compile(ctx context.Context) (compose.Runnable[string, *query.SessionState], error) {
	w.compileOnce.Do(func() {
		w.compiled, w.compileErr = w.buildGraph(ctx)
	})
	return w.compiled, w.compileErr
}

func (w *Workflow) buildGraph(ctx context.Context) (compose.Runnable[string, *query.SessionState], error) {
	g := compose.NewGraph[string, *query.SessionState]()

	if err := g.AddLambdaNode(nodeRetrieve, compose.InvokableLambda(w.retrieve)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeScore, compose.InvokableLambda(w.score)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeWebSearch, compose.InvokableLambda(w.webSearch)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeGenerate, compose.InvokableLambda(w.generate)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, nodeRetrieve); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeRetrieve, nodeScore); err != nil {
		return nil, err
	}

	// 评分后按 NeedsWeb 决定是否先补充网络证据
	branch := compose.NewGraphBranch(
		func(ctx context.Context, st *query.SessionState) (string, error) {
			if st.NeedsWeb {
				return nodeWebSearch, nil
			}
			return nodeGenerate, nil
		},
		map[string]bool{
			nodeWebSearch: true,
			nodeGenerate:  true,
		},
	)
	if err := g.AddBranch(nodeScore, branch); err != nil {
		return nil, err
	}

	if err := g.AddEdge(nodeWebSearch, nodeGenerate); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeGenerate, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx)
}

// retrieve 执行本地向量检索，检索失败降级为空文档集。
func (w *Workflow) retrieve(ctx context.Context, question string) (*query.SessionState, error) {
	start := time.Now()
	defer func() {
		metrics.QueryStageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	st := query.NewSessionState(question)
	result := w.retriever.Retrieve(ctx, question, w.topK)
	st.Documents = result.Passages
	st.RetrievalDegraded = result.Degraded
	if result.Degraded {
		logger.Warn(ctx, "retrieval degraded", "reason", result.Reason)
	}
	return st, nil
}

// score 为每篇文档打相关性分并判定是否需要网络补充。
func (w *Workflow) score(ctx context.Context, st *query.SessionState) (*query.SessionState, error) {
	start := time.Now()
	defer func() {
		metrics.QueryStageDuration.WithLabelValues("score").Observe(time.Since(start).Seconds())
	}()

	result := w.scorer.Score(ctx, st.Question, st.Documents)
	st.RelevanceScores = result.Scores
	st.ScoreFallbacks = result.Fallback
	st.NeedsWeb = result.NeedsWeb

	if st.NeedsWeb {
		reason := "low_scores"
		if len(st.Documents) == 0 {
			reason = "no_documents"
		}
		metrics.QueryWebFallbackTotal.WithLabelValues(reason).Inc()
		logger.Info(ctx, "falling back to web search", "reason", reason, "document_count", len(st.Documents))
	}
	return st, nil
}

// webSearch 补充网络证据，失败不阻断流程。
func (w *Workflow) webSearch(ctx context.Context, st *query.SessionState) (*query.SessionState, error) {
	start := time.Now()
	defer func() {
		metrics.QueryStageDuration.WithLabelValues("web_search").Observe(time.Since(start).Seconds())
	}()

	result := w.webSearcher.Search(ctx, st.Question)
	st.WebResults = result.Snippets
	st.WebSearchDegraded = result.Degraded
	return st, nil
}

// generate 基于全部证据合成最终回答，失败终止请求。
func (w *Workflow) generate(ctx context.Context, st *query.SessionState) (*query.SessionState, error) {
	start := time.Now()
	defer func() {
		metrics.QueryStageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	}()

	answer, err := w.synthesizer.Synthesize(ctx, query.SynthesisInput{
		Question:   st.Question,
		Documents:  st.Documents,
		Scores:     st.RelevanceScores,
		WebResults: st.WebResults,
	})
	if err != nil {
		return nil, err
	}
	st.Answer = answer
	return st, nil
}
