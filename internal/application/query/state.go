// Package query 实现法律问答流水线的四个阶段组件与会话状态。
package query

import "context"

// SessionState 单次问答的会话状态，由工作流在一次运行期间独占持有。
// 每个阶段只写入自己拥有的字段：
//   - retrieve 写 Documents / RetrievalDegraded
//   - score    写 RelevanceScores / ScoreFallbacks / NeedsWeb
//   - web      写 WebResults / WebSearchDegraded
//   - generate 写 Answer
type SessionState struct {
	// Question 用户提问，创建后不可变
	Question string

	// Documents 召回的文档段落，顺序即评分顺序
	Documents []string

	// RelevanceScores 与 Documents 一一对应的相关性分数，取值 [0, 10]
	RelevanceScores []float64

	// NeedsWeb 是否需要网络兜底检索，由评分阶段一次性计算
	NeedsWeb bool

	// WebResults 网络兜底检索摘要；未触发或无结果时为空切片而非 nil
	WebResults []string

	// Answer 最终合成的回答；写入后会话进入终态
	Answer string

	// 降级诊断：区分"正常产出"与"吞掉故障后的兜底默认值"
	RetrievalDegraded bool
	ScoreFallbacks    []bool
	WebSearchDegraded bool
}

// NewSessionState 创建初始状态：集合字段为空切片，NeedsWeb 为 false。
func NewSessionState(question string) *SessionState {
	return &SessionState{
		Question:        question,
		Documents:       []string{},
		RelevanceScores: []float64{},
		WebResults:      []string{},
		ScoreFallbacks:  []bool{},
	}
}

// RetrieveResult 召回阶段产出。Degraded 表示底层检索故障被吸收、结果以空代替。
type RetrieveResult struct {
	Passages []string
	Degraded bool
	Reason   string
}

// ScoreResult 评分阶段产出。Fallback[i] 为 true 表示第 i 个分数
// 来自解析失败后的中性默认值，而非模型给出的评分。
type ScoreResult struct {
	Scores   []float64
	Fallback []bool
	NeedsWeb bool
}

// WebSearchResult 网络兜底检索产出。Snippets 永远非 nil。
type WebSearchResult struct {
	Snippets []string
	Degraded bool
	Reason   string
}

// SynthesisInput 合成阶段输入。
type SynthesisInput struct {
	Question   string
	Documents  []string
	Scores     []float64
	WebResults []string
}

// Retriever 证据召回阶段。
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) RetrieveResult
}

// Scorer 相关性评分阶段。
type Scorer interface {
	Score(ctx context.Context, question string, documents []string) ScoreResult
}

// WebSearcher 网络兜底检索阶段。
type WebSearcher interface {
	Search(ctx context.Context, question string) WebSearchResult
}

// Synthesizer 答案合成阶段。该阶段失败对整个请求是致命的。
type Synthesizer interface {
	Synthesize(ctx context.Context, in SynthesisInput) (string, error)
}

// NeedsWebSearch 判定是否需要网络兜底：无文档，或最高分低于阈值。
// 作为纯函数暴露，供评分阶段与测试复用。
func NeedsWebSearch(scores []float64, threshold float64) bool {
	if len(scores) == 0 {
		return true
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	return max < threshold
}
