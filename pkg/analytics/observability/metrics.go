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

// MetricsRecorder records analytics dispatch metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDelivery records one handler tracking one event.
	RecordDelivery(ctx context.Context, event, handler string, duration time.Duration, err error)

	// RecordFanOut records a multiplex Track call and how many handlers it reached.
	RecordFanOut(ctx context.Context, event string, delivered, skipped int)

	// RecordRegistration records a handler registration.
	RecordRegistration(ctx context.Context, handler, groups string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	deliveries    metric.Int64Counter
	deliveryTime  metric.Float64Histogram
	failures      metric.Int64Counter
	fanOuts       metric.Int64Counter
	fanOutWidth   metric.Int64Histogram
	skipped       metric.Int64Counter
	registrations metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter("analytics"))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	deliveries, err := meter.Int64Counter("analytics.deliveries",
		metric.WithDescription("Number of events tracked by handlers"),
	)
	if err != nil {
		return nil, err
	}

	deliveryTime, err := meter.Float64Histogram("analytics.delivery.latency_ms",
		metric.WithDescription("Handler track latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("analytics.delivery.errors",
		metric.WithDescription("Number of failed handler deliveries"),
	)
	if err != nil {
		return nil, err
	}

	fanOuts, err := meter.Int64Counter("analytics.fanouts",
		metric.WithDescription("Number of multiplex track calls"),
	)
	if err != nil {
		return nil, err
	}

	fanOutWidth, err := meter.Int64Histogram("analytics.fanout.width",
		metric.WithDescription("Number of handlers reached by one track call"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter("analytics.skipped",
		metric.WithDescription("Number of handlers skipped by group routing"),
	)
	if err != nil {
		return nil, err
	}

	registrations, err := meter.Int64Counter("analytics.registrations",
		metric.WithDescription("Number of handler registrations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		deliveries:    deliveries,
		deliveryTime:  deliveryTime,
		failures:      failures,
		fanOuts:       fanOuts,
		fanOutWidth:   fanOutWidth,
		skipped:       skipped,
		registrations: registrations,
	}, nil
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

// NewMetricsRecorderWithMeter returns a MetricsRecorder bound to meter
// instead of the global provider.
func NewMetricsRecorderWithMeter(meter metric.Meter) (MetricsRecorder, error) {
	m, err := newOtelMetrics(meter)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordDelivery records one delivery.
func (m *otelMetrics) RecordDelivery(ctx context.Context, event, handler string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("handler", handler),
	)

	m.deliveries.Add(ctx, 1, attrs)
	m.deliveryTime.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}

// RecordFanOut records a multiplex Track call.
func (m *otelMetrics) RecordFanOut(ctx context.Context, event string, delivered, skipped int) {
	attrs := metric.WithAttributes(attribute.String("event", event))
	m.fanOuts.Add(ctx, 1, attrs)
	m.fanOutWidth.Record(ctx, int64(delivered), attrs)
	if skipped > 0 {
		m.skipped.Add(ctx, int64(skipped), attrs)
	}
}

// RecordRegistration records a handler registration.
func (m *otelMetrics) RecordRegistration(ctx context.Context, handler, groups string) {
	m.registrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.String("groups", groups),
	))
}
