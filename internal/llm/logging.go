package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

type contextKey string

const purposeKey contextKey = "llm_purpose"

// WithPurpose attaches a purpose label ("feedback", "curriculum", ...) to the
// context for logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// EventRecorder persists LLM call events.
type EventRecorder interface {
	AppendLLMEvent(ctx context.Context, ev model.LLMEvent) error
}

type loggingProvider struct {
	inner    Provider
	provider string
	recorder EventRecorder
}

// WithLogging wraps a Provider so every call is logged and, when recorder is
// not nil, recorded as an event.
func WithLogging(p Provider, providerName string, recorder EventRecorder) Provider {
	return &loggingProvider{inner: p, provider: providerName, recorder: recorder}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := model.LLMEvent{
		Timestamp: start,
		Purpose:   PurposeFrom(ctx),
		Provider:  l.provider,
		Model:     l.inner.ModelID(),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}

	if err != nil {
		ev.Error = err.Error()
		slog.Error("LLM call failed",
			"purpose", ev.Purpose, "model", ev.Model, "latency_ms", ev.LatencyMs, "error", err)
	} else {
		slog.Debug("LLM call",
			"purpose", ev.Purpose, "model", ev.Model, "latency_ms", ev.LatencyMs,
			"input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens,
			"stop_reason", resp.StopReason)
		if resp.StopReason == "max_tokens" {
			slog.Warn("LLM response truncated", "purpose", ev.Purpose, "model", ev.Model)
		}
	}

	if l.recorder != nil {
		// Recording must not fail the request. The caller's context may
		// already be canceled, so record without it.
		if logErr := l.recorder.AppendLLMEvent(context.WithoutCancel(ctx), ev); logErr != nil {
			slog.Warn("failed to record LLM event", "error", logErr)
		}
	}

	return resp, err
}

func (l *loggingProvider) ModelID() string {
	return l.inner.ModelID()
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout bounds each call to d. A zero duration returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
