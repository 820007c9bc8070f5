package query

import (
	"context"

	einoobs "watson-legal-api/internal/observability/eino"
	"watson-legal-api/internal/workflow/port"
	apperrors "watson-legal-api/pkg/errors"
)

// LLMSynthesizer 基于已组装的证据生成最终回答。
// 与评分不同，合成失败是致命错误，由上层转换为请求失败。
type LLMSynthesizer struct {
	factory   port.ChatModelFactory
	provider  string
	threshold float64
}

// NewLLMSynthesizer 创建回答合成器。
func NewLLMSynthesizer(factory port.ChatModelFactory, provider string, threshold float64) *LLMSynthesizer {
	return &LLMSynthesizer{factory: factory, provider: provider, threshold: threshold}
}

// Synthesize 组装上下文并调用模型生成回答。
func (s *LLMSynthesizer) Synthesize(ctx context.Context, in SynthesisInput) (string, error) {
	ctx = einoobs.WithWorkflowProvider(ctx, "generate", s.provider)
	contextBlock := BuildContextBlock(in.Documents, in.Scores, in.WebResults, s.threshold)

	msgs, err := AssistantMessages(ctx, contextBlock, in.Question)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeSynthesisFailed, "render answer prompt failed")
	}

	chatModel, err := s.factory.Get(ctx, s.provider)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMProviderError, "get chat model failed")
	}

	resp, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeSynthesisFailed, "answer generation failed")
	}
	return resp.Content, nil
}
