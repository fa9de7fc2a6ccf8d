package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records broker and service metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEventSent records an event send. routed is false when no
	// service was eligible to receive it.
	RecordEventSent(ctx context.Context, messageType string, routed bool)

	// RecordEventCompleted records a result delivered to a pending event.
	RecordEventCompleted(ctx context.Context, messageType string)

	// RecordEventsAbandoned records pending events dropped on unregister.
	RecordEventsAbandoned(ctx context.Context, count int)

	// RecordBroadcast records a broadcast and how many mailboxes received it.
	RecordBroadcast(ctx context.Context, messageType string, deliveries int)

	// RecordMessageHandled records one handler invocation.
	RecordMessageHandled(ctx context.Context, service, messageType string, duration time.Duration, err error)

	// RecordServiceCrashed records a service terminated by a handler failure.
	RecordServiceCrashed(ctx context.Context, service string)
}

type otelMetrics struct {
	eventsSent         metric.Int64Counter
	eventsUnrouted     metric.Int64Counter
	eventsCompleted    metric.Int64Counter
	eventsAbandoned    metric.Int64Counter
	broadcastsSent     metric.Int64Counter
	broadcastDelivered metric.Int64Counter
	messagesHandled    metric.Int64Counter
	handlerLatency     metric.Float64Histogram
	servicesCrashed    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("microbus")
	m := &otelMetrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.eventsSent, "microbus.events.sent", "Number of events dispatched to a service"},
		{&m.eventsUnrouted, "microbus.events.unrouted", "Number of events sent with no eligible receiver"},
		{&m.eventsCompleted, "microbus.events.completed", "Number of event results delivered"},
		{&m.eventsAbandoned, "microbus.events.abandoned", "Number of pending events dropped on unregister"},
		{&m.broadcastsSent, "microbus.broadcasts.sent", "Number of broadcasts sent"},
		{&m.broadcastDelivered, "microbus.broadcasts.deliveries", "Number of broadcast mailbox deliveries"},
		{&m.messagesHandled, "microbus.messages.handled", "Number of messages handled by services"},
		{&m.servicesCrashed, "microbus.services.crashed", "Number of services terminated by handler failures"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	latency, err := meter.Float64Histogram("microbus.handler.latency_ms",
		metric.WithDescription("Handler latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.handlerLatency = latency

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordEventSent(ctx context.Context, messageType string, routed bool) {
	attrs := metric.WithAttributes(attribute.String("message_type", messageType))
	if routed {
		m.eventsSent.Add(ctx, 1, attrs)
		return
	}
	m.eventsUnrouted.Add(ctx, 1, attrs)
}

func (m *otelMetrics) RecordEventCompleted(ctx context.Context, messageType string) {
	m.eventsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("message_type", messageType)))
}

func (m *otelMetrics) RecordEventsAbandoned(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.eventsAbandoned.Add(ctx, int64(count))
}

func (m *otelMetrics) RecordBroadcast(ctx context.Context, messageType string, deliveries int) {
	attrs := metric.WithAttributes(attribute.String("message_type", messageType))
	m.broadcastsSent.Add(ctx, 1, attrs)
	m.broadcastDelivered.Add(ctx, int64(deliveries), attrs)
}

func (m *otelMetrics) RecordMessageHandled(ctx context.Context, service, messageType string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("message_type", messageType),
		attribute.Bool("success", err == nil),
	)
	m.messagesHandled.Add(ctx, 1, attrs)
	m.handlerLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordServiceCrashed(ctx context.Context, service string) {
	m.servicesCrashed.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}
