package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordEventSent(_ context.Context, _ string, _ bool)  {}
func (NoopMetrics) RecordEventCompleted(_ context.Context, _ string)     {}
func (NoopMetrics) RecordEventsAbandoned(_ context.Context, _ int)       {}
func (NoopMetrics) RecordBroadcast(_ context.Context, _ string, _ int)   {}
func (NoopMetrics) RecordServiceCrashed(_ context.Context, _ string)     {}
func (NoopMetrics) RecordMessageHandled(_ context.Context, _, _ string, _ time.Duration, _ error) {
}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartHandleSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartHandleSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
