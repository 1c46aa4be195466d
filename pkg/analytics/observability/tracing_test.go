package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a tracer provider with an in-memory exporter.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, SpanManager) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	})
	return exporter, NewSpanManagerWithProvider(tp)
}

func attrString(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}

func TestStartTrackSpan(t *testing.T) {
	exporter, sm := setupTracingTest(t)

	ctx, span := sm.StartTrackSpan(context.Background(), "loginFailed", "action|state")
	require.NotNil(t, span)
	assert.True(t, span.SpanContext().IsValid())
	assert.NotNil(t, ctx)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "analytics.track", spans[0].Name)
	assert.Equal(t, "loginFailed", attrString(spans[0].Attributes, "event.name"))
	assert.Equal(t, "action|state", attrString(spans[0].Attributes, "event.groups"))
}

func TestStartDeliverySpan_ChildOfTrack(t *testing.T) {
	exporter, sm := setupTracingTest(t)

	ctx, trackSpan := sm.StartTrackSpan(context.Background(), "signup", "action")
	_, deliverSpan := sm.StartDeliverySpan(ctx, "store")
	deliverSpan.End()
	trackSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	var delivery *tracetest.SpanStub
	for i := range spans {
		if spans[i].Name == "analytics.deliver" {
			delivery = &spans[i]
		}
	}
	require.NotNil(t, delivery)
	assert.Equal(t, "store", attrString(delivery.Attributes, "handler"))
	assert.True(t, delivery.Parent.IsValid())
	assert.Equal(t, trackSpan.SpanContext().TraceID(), delivery.SpanContext.TraceID())
}

func TestEndSpanWithError(t *testing.T) {
	exporter, sm := setupTracingTest(t)

	t.Run("error sets status and records event", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartDeliverySpan(context.Background(), "h")
		sm.EndSpanWithError(span, errors.New("write failed"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "write failed", spans[0].Status.Description)
		require.NotEmpty(t, spans[0].Events)
		assert.Equal(t, "exception", spans[0].Events[0].Name)
	})

	t.Run("nil error sets ok", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartDeliverySpan(context.Background(), "h")
		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("nil span does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			EndSpanWithError(nil, errors.New("x"))
		})
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, sm := setupTracingTest(t)

	ctx, span := sm.StartTrackSpan(context.Background(), "e", "action")
	sm.AddSpanEvent(ctx, "handler.skipped", attribute.String("handler", "h2"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "handler.skipped", spans[0].Events[0].Name)

	assert.NotPanics(t, func() {
		AddSpanEvent(context.Background(), "no span")
	})
}

func TestNewSpanManager_UsesGlobalProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	}()

	_, span := NewSpanManager().StartTrackSpan(context.Background(), "e", "action")
	span.End()

	assert.Len(t, exporter.GetSpans(), 1)
}
