package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown meter provider: %v", err)
		}
	})
	return reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum for %s", name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)
}

func TestOtelMetrics_Events(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordEventSent(ctx, "*app.Job", true)
	m.RecordEventSent(ctx, "*app.Job", true)
	m.RecordEventSent(ctx, "*app.Orphan", false)
	m.RecordEventCompleted(ctx, "*app.Job")
	m.RecordEventsAbandoned(ctx, 3)
	m.RecordEventsAbandoned(ctx, 0)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, rm, "microbus.events.sent"))
	assert.Equal(t, int64(1), sumValue(t, rm, "microbus.events.unrouted"))
	assert.Equal(t, int64(1), sumValue(t, rm, "microbus.events.completed"))
	assert.Equal(t, int64(3), sumValue(t, rm, "microbus.events.abandoned"))
}

func TestOtelMetrics_Broadcasts(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordBroadcast(context.Background(), "*app.Tick", 4)
	m.RecordBroadcast(context.Background(), "*app.Tick", 2)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, rm, "microbus.broadcasts.sent"))
	assert.Equal(t, int64(6), sumValue(t, rm, "microbus.broadcasts.deliveries"))
}

func TestOtelMetrics_Handlers(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordMessageHandled(ctx, "worker", "*app.Job", 5*time.Millisecond, nil)
	m.RecordMessageHandled(ctx, "worker", "*app.Job", time.Millisecond, errors.New("bad"))
	m.RecordServiceCrashed(ctx, "worker")

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, rm, "microbus.messages.handled"))
	assert.Equal(t, int64(1), sumValue(t, rm, "microbus.services.crashed"))

	latency := findMetric(rm, "microbus.handler.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.NotEmpty(t, hist.DataPoints)
}
