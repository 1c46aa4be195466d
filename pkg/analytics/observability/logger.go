// Package observability provides structured logging, metrics and
// distributed tracing for analytics dispatch.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// The package works on erased names and group strings so it never
// depends on the analytics core types.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
// Returns a new logger with event and groups fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "loginFailed", "action|state")
//	enriched.Info("delivering") // includes event, groups
func EnrichLogger(logger *slog.Logger, event, groups string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event", event),
		slog.String("groups", groups),
	)
}

// LogRegister logs a handler registration on a multiplex.
func LogRegister(logger *slog.Logger, handler, groups string, merged bool) {
	if logger == nil {
		return
	}
	logger.Debug("handler registered",
		slog.String("handler", handler),
		slog.String("groups", groups),
		slog.Bool("merged", merged),
	)
}

// LogUnregister logs the removal of a handler.
func LogUnregister(logger *slog.Logger, handler string) {
	if logger == nil {
		return
	}
	logger.Debug("handler unregistered",
		slog.String("handler", handler),
	)
}

// LogDelivery logs a successful delivery to one handler.
func LogDelivery(logger *slog.Logger, event, handler string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event delivered",
		slog.String("event", event),
		slog.String("handler", handler),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDeliveryError logs a handler that failed to track an event.
// The failure is isolated; other handlers still receive the event.
func LogDeliveryError(logger *slog.Logger, event, handler string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event delivery failed",
		slog.String("event", event),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// LogSkipped logs a handler skipped because its groups are disjoint from
// the event's groups.
func LogSkipped(logger *slog.Logger, event, handler string) {
	if logger == nil {
		return
	}
	logger.Debug("event skipped",
		slog.String("event", event),
		slog.String("handler", handler),
	)
}

// LogFanOut logs the outcome of one multiplex Track call.
func LogFanOut(logger *slog.Logger, event string, delivered, skipped, failed int) {
	if logger == nil {
		return
	}
	logger.Debug("event fanned out",
		slog.String("event", event),
		slog.Int("delivered", delivered),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
