package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// NoSourcesPlaceholder 本地与网络证据均为空时注入上下文的占位说明。
const NoSourcesPlaceholder = "No reliable sources were found for this question."

// contextSeparator 分隔独立证据块，便于模型区分来源。
const contextSeparator = "\n\n---\n\n"

var scoringTemplate = prompt.FromMessages(
	schema.FString,
	schema.SystemMessage(`You are a relevance scorer. Rate how relevant the following document is to the query.
Score from 0-10 where:
- 0-3: Not relevant
- 4-6: Somewhat relevant
- 7-10: Highly relevant

Return ONLY a number from 0-10.`),
	schema.UserMessage("Query: {query}\n\nDocument: {document}"),
)

var legalAssistantTemplate = prompt.FromMessages(
	schema.FString,
	schema.SystemMessage(`You are Watson, an expert legal assistant specializing in Indian law.

Your capabilities:
- Answer legal questions with citations
- Search legal databases and case law
- Provide relevant precedents
- Explain complex legal concepts clearly

Always:
1. Be accurate and cite sources
2. Clarify when something requires a licensed attorney
3. Provide relevant case law when available
4. Use clear, professional language

Current context: {context}
`),
	schema.UserMessage("{question}"),
)

// ScoringMessages 渲染单篇文档的评分提示词。
func ScoringMessages(ctx context.Context, question, document string) ([]*schema.Message, error) {
	return scoringTemplate.Format(ctx, map[string]any{
		"query":    question,
		"document": document,
	})
}

// AssistantMessages 渲染最终回答的提示词。
func AssistantMessages(ctx context.Context, contextBlock, question string) ([]*schema.Message, error) {
	return legalAssistantTemplate.Format(ctx, map[string]any{
		"context":  contextBlock,
		"question": question,
	})
}

// BuildContextBlock 组装合成阶段的上下文：
//  1. 分数达到阈值的本地段落，标注分数；
//  2. 网络检索摘要整体作为一个标注来源的块；
//  3. 两者皆空时使用占位说明。
func BuildContextBlock(documents []string, scores []float64, webResults []string, threshold float64) string {
	sections := make([]string, 0, len(documents)+1)

	n := len(documents)
	if len(scores) < n {
		n = len(scores)
	}
	for i := 0; i < n; i++ {
		if scores[i] >= threshold {
			sections = append(sections, fmt.Sprintf("[Relevance: %.1f/10]\n%s", scores[i], documents[i]))
		}
	}

	if len(webResults) > 0 {
		sections = append(sections, "Web Search Results:\n"+strings.Join(webResults, "\n"))
	}

	if len(sections) == 0 {
		return NoSourcesPlaceholder
	}
	return strings.Join(sections, contextSeparator)
}

// truncateRunes 截取前 n 个 rune，控制提示词成本。
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
