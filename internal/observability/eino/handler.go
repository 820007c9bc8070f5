package einoobs

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"watson-legal-api/pkg/metrics"
)

// callState 随 Context 传递的单次调用状态
type callState struct {
	start     time.Time
	workflow  string
	provider  string
	modelName string
}

type callStateKey struct{}

func stateFromContext(ctx context.Context) *callState {
	st, _ := ctx.Value(callStateKey{}).(*callState)
	return st
}

// chatModelRecorder 将每次模型调用上报到 Prometheus 与 OTel
type chatModelRecorder struct {
	tracer trace.Tracer
}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	r := &chatModelRecorder{tracer: otel.Tracer("eino")}
	return &cbtemplate.ModelCallbackHandler{
		OnStart: r.onStart,
		OnEnd:   r.onEnd,
		OnError: r.onError,
	}
}

func (r *chatModelRecorder) onStart(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
	st := &callState{
		start:    time.Now(),
		workflow: WorkflowFromContext(ctx),
		provider: ProviderFromContext(ctx),
	}
	if input != nil && input.Config != nil {
		st.modelName = input.Config.Model
	}
	ctx = context.WithValue(ctx, callStateKey{}, st)

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", st.workflow),
		attribute.String("llm.provider", st.provider),
		attribute.String("llm.model", st.modelName),
	}
	if info != nil {
		attrs = append(attrs,
			attribute.String("eino.node_name", info.Name),
			attribute.String("eino.type", info.Type),
		)
	}

	ctx, _ = r.tracer.Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return ctx
}

func (r *chatModelRecorder) onEnd(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
	st := stateFromContext(ctx)
	if st == nil {
		return ctx
	}
	if output != nil && output.Config != nil && output.Config.Model != "" {
		st.modelName = output.Config.Model
	}

	r.observe(st, "success")

	span := trace.SpanFromContext(ctx)
	if output != nil && output.TokenUsage != nil {
		usage := output.TokenUsage
		metrics.LLMTokensUsed.WithLabelValues(st.workflow, st.provider, st.modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(st.workflow, st.provider, st.modelName, "completion").Add(float64(usage.CompletionTokens))
		if span != nil {
			span.SetAttributes(
				attribute.Int("llm.prompt_tokens", usage.PromptTokens),
				attribute.Int("llm.completion_tokens", usage.CompletionTokens),
			)
		}
	}
	if span != nil {
		span.End()
	}
	return ctx
}

func (r *chatModelRecorder) onError(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
	if st := stateFromContext(ctx); st != nil {
		r.observe(st, "error")
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
	}
	return ctx
}

func (r *chatModelRecorder) observe(st *callState, status string) {
	metrics.LLMCallTotal.WithLabelValues(st.workflow, st.provider, st.modelName, status).Inc()
	metrics.LLMCallDuration.WithLabelValues(st.workflow, st.provider, st.modelName).Observe(time.Since(st.start).Seconds())
}
