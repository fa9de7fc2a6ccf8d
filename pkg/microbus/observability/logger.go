// Package observability provides structured logging, metrics and tracing
// for the microbus runtime.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds service identity to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "camera-1", id)
//	enriched.Info("tick handled") // includes service and service_id
func EnrichLogger(logger *slog.Logger, service, serviceID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("service", service),
		slog.String("service_id", serviceID),
	)
}

// LogServiceStart logs a service entering its receive loop.
func LogServiceStart(logger *slog.Logger, handlers int) {
	if logger == nil {
		return
	}
	logger.Debug("service started",
		slog.Int("handlers", handlers),
	)
}

// LogServiceStop logs a service leaving its receive loop.
func LogServiceStop(logger *slog.Logger, handled int, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("service stopped",
		slog.Int("messages_handled", handled),
		slog.String("reason", reason),
	)
}

// LogServiceCrashed logs a handler failure that terminates a service.
func LogServiceCrashed(logger *slog.Logger, messageType string, err error) {
	if logger == nil {
		return
	}
	logger.Error("service crashed",
		slog.String("message_type", messageType),
		slog.String("error", err.Error()),
	)
}

// LogUnhandled logs a message that reached a mailbox without a handler.
func LogUnhandled(logger *slog.Logger, messageType string) {
	if logger == nil {
		return
	}
	logger.Warn("no handler for message",
		slog.String("message_type", messageType),
	)
}

// LogEventUnrouted logs an event that had no eligible receiver.
// This is a normal outcome, so it is logged at debug level.
func LogEventUnrouted(logger *slog.Logger, sender, messageType string) {
	if logger == nil {
		return
	}
	logger.Debug("event not routed",
		slog.String("sender", sender),
		slog.String("message_type", messageType),
	)
}

// LogEventsAbandoned logs result slots dropped during unregistration.
func LogEventsAbandoned(logger *slog.Logger, service string, count int) {
	if logger == nil || count == 0 {
		return
	}
	logger.Debug("pending events abandoned",
		slog.String("service", service),
		slog.Int("count", count),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
