// Package einoobs 提供 Eino 调用链的指标与追踪回调。
package einoobs

import "context"

type workflowKey struct{}
type providerKey struct{}

// WithWorkflow 标记当前调用所属的工作流阶段。
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return context.WithValue(ctx, workflowKey{}, workflow)
}

// WithProvider 标记当前调用使用的模型提供商。
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey{}, provider)
}

// WithWorkflowProvider 同时标记工作流与提供商。
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

// WorkflowFromContext 读取工作流标记，缺省返回 unknown。
func WorkflowFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(workflowKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ProviderFromContext 读取提供商标记，缺省返回 unknown。
func ProviderFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(providerKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
