package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrBuildID = "build_id"
	attrPhase   = "phase"
)

type buildKey struct{}

type buildScope struct {
	id    string
	phase Phase
}

// WithBuild tags ctx with a build id; records logged through a TracingHandler
// with this context carry it.
func WithBuild(ctx context.Context, id string) context.Context {
	scope, _ := ctx.Value(buildKey{}).(buildScope)
	scope.id = id

	return context.WithValue(ctx, buildKey{}, scope)
}

// WithPhase tags ctx with the current build phase.
func WithPhase(ctx context.Context, phase Phase) context.Context {
	scope, _ := ctx.Value(buildKey{}).(buildScope)
	scope.phase = phase

	return context.WithValue(ctx, buildKey{}, scope)
}

// TracingHandler is an [slog.Handler] that injects OpenTelemetry trace context
// (trace_id, span_id), the build id and phase from the context, and service
// metadata into every log record.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps an [slog.Handler]. Service attributes are attached
// to the inner handler up front so they stay at the top level regardless of
// later WithGroup calls.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{
		inner: inner.WithAttrs(attrs),
	}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds context attributes, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if scope, ok := ctx.Value(buildKey{}).(buildScope); ok {
		if scope.id != "" {
			record.AddAttrs(slog.String(attrBuildID, scope.id))
		}

		if scope.phase != "" {
			record.AddAttrs(slog.String(attrPhase, string(scope.phase)))
		}
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes on the inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{
		inner: th.inner.WithAttrs(attrs),
	}
}

// WithGroup returns a new TracingHandler with a group prefix on the inner handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{
		inner: th.inner.WithGroup(name),
	}
}
