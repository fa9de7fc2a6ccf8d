package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordEventSent(ctx, "t", true)
		m.RecordEventCompleted(ctx, "t")
		m.RecordEventsAbandoned(ctx, 2)
		m.RecordBroadcast(ctx, "t", 3)
		m.RecordMessageHandled(ctx, "s", "t", time.Millisecond, errors.New("x"))
		m.RecordServiceCrashed(ctx, "s")
	})
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}
	ctx := context.Background()

	gotCtx, span := sm.StartHandleSpan(ctx, "s", "t")
	assert.Equal(t, ctx, gotCtx)
	assert.False(t, span.IsRecording())

	assert.NotPanics(t, func() {
		sm.AddSpanEvent(ctx, "event", attribute.String("k", "v"))
		sm.EndSpanWithError(span, errors.New("x"))
	})
}
