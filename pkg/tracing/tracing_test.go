package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "storefront"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewProvider_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewProvider(context.Background(), Config{
		ServiceName: "storefront", ServiceVersion: "test", Environment: "test", SampleRate: 1,
	}, sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "catalog.list",
		Attrs(attribute.Int("page", 2)))
	End(span, errors.New("store unavailable"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "catalog.list", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "storefront", service)
}

func TestNewProvider_NeverSample(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewProvider(context.Background(), Config{ServiceName: "storefront", SampleRate: 0},
		sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "dropped")
	End(span, nil)

	assert.Empty(t, exporter.GetSpans())
}
