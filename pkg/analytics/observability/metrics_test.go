package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns its reader
// together with a recorder bound to it.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, *otelMetrics) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	})

	m, err := newOtelMetrics(provider.Meter("analytics"))
	require.NoError(t, err)
	return reader, m
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
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

// sumFor returns the counter value for the datapoint with attribute key=value.
func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) (int64, bool) {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value, true
		}
	}
	return 0, false
}

func TestNewMetricsRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	defer otel.SetMeterProvider(original)

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordDelivery(t *testing.T) {
	reader, m := setupMetricsTest(t)
	ctx := context.Background()

	t.Run("counts deliveries per handler", func(t *testing.T) {
		m.RecordDelivery(ctx, "signup", "store", 2*time.Millisecond, nil)
		m.RecordDelivery(ctx, "signup", "store", 3*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "analytics.deliveries")
		require.NotNil(t, metric)

		value, found := sumFor(t, metric, "handler", "store")
		require.True(t, found)
		assert.Equal(t, int64(2), value)
	})

	t.Run("records latency", func(t *testing.T) {
		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "analytics.delivery.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("counts errors only when present", func(t *testing.T) {
		m.RecordDelivery(ctx, "signup", "failing", time.Millisecond, errors.New("boom"))

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "analytics.delivery.errors")
		require.NotNil(t, metric)

		value, found := sumFor(t, metric, "handler", "failing")
		require.True(t, found)
		assert.Equal(t, int64(1), value)

		_, found = sumFor(t, metric, "handler", "store")
		assert.False(t, found, "successful handler must not have an error datapoint")
	})
}

func TestRecordFanOut(t *testing.T) {
	reader, m := setupMetricsTest(t)
	ctx := context.Background()

	m.RecordFanOut(ctx, "loginFailed", 2, 1)
	m.RecordFanOut(ctx, "loginFailed", 1, 0)

	rm := collectMetrics(t, reader)

	fanOuts := findMetric(rm, "analytics.fanouts")
	require.NotNil(t, fanOuts)
	value, found := sumFor(t, fanOuts, "event", "loginFailed")
	require.True(t, found)
	assert.Equal(t, int64(2), value)

	skipped := findMetric(rm, "analytics.skipped")
	require.NotNil(t, skipped)
	value, found = sumFor(t, skipped, "event", "loginFailed")
	require.True(t, found)
	assert.Equal(t, int64(1), value)

	width := findMetric(rm, "analytics.fanout.width")
	require.NotNil(t, width)
	hist, ok := width.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, int64(3), hist.DataPoints[0].Sum)
}

func TestRecordRegistration(t *testing.T) {
	reader, m := setupMetricsTest(t)

	m.RecordRegistration(context.Background(), "store", "action|state")

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "analytics.registrations")
	require.NotNil(t, metric)
	value, found := sumFor(t, metric, "groups", "action|state")
	require.True(t, found)
	assert.Equal(t, int64(1), value)
}

func TestNewMetricsRecorderWithMeter(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	defer provider.Shutdown(context.Background()) //nolint:errcheck

	recorder, err := NewMetricsRecorderWithMeter(provider.Meter("test"))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		recorder.RecordDelivery(context.Background(), "e", "h", time.Millisecond, nil)
		recorder.RecordFanOut(context.Background(), "e", 1, 0)
		recorder.RecordRegistration(context.Background(), "h", "action")
	})
}
