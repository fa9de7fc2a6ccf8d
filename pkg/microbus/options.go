package microbus

import (
	"log/slog"

	"github.com/randalmurphal/microbus/pkg/microbus/observability"
)

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger for the broker and, by default, for every
// service created on it.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
//
// Example:
//
//	broker := microbus.NewBroker(microbus.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(recorder observability.MetricsRecorder) Option {
	return func(b *Broker) {
		if recorder != nil {
			b.metrics = recorder
		}
	}
}

// WithTracing enables an OpenTelemetry span around every handler call.
// Default: false
func WithTracing(enabled bool) Option {
	return func(b *Broker) {
		if enabled {
			b.spans = observability.NewSpanManager()
		} else {
			b.spans = observability.NoopSpanManager{}
		}
	}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger overrides the logger a service inherits from its broker.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
