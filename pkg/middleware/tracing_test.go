package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installTestTracer swaps the global tracer provider for an in-memory one
// and restores the previous provider when the test finishes.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func tracedRequest(t *testing.T, status int, mutate func(*http.Request)) (*tracetest.InMemoryExporter, *httptest.ResponseRecorder) {
	t.Helper()

	exporter := installTestTracer(t)

	r := chi.NewRouter()
	r.Use(Tracing("marketgo"))
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	req := httptest.NewRequest(http.MethodGet, "/products/p-1", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return exporter, rec
}

func TestTracing_NamesSpanAfterRoutePattern(t *testing.T) {
	exporter, rec := tracedRequest(t, http.StatusOK, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "GET /products/{id}", spans[0].Name)
}

func TestTracing_RecordsStatusCodeAttribute(t *testing.T) {
	exporter, _ := tracedRequest(t, http.StatusNotFound, nil)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)

	var status int64 = -1
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == "http.status_code" {
			status = attr.Value.AsInt64()
		}
	}
	assert.EqualValues(t, http.StatusNotFound, status)
}

func TestTracing_ServerErrorMarksSpan(t *testing.T) {
	exporter, _ := tracedRequest(t, http.StatusInternalServerError, nil)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)

	// codes.Error is 1 in the Go SDK.
	assert.EqualValues(t, 1, spans[0].Status.Code)
}

func TestTracing_ClientErrorLeavesSpanUnset(t *testing.T) {
	exporter, _ := tracedRequest(t, http.StatusNotFound, nil)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	assert.EqualValues(t, 0, spans[0].Status.Code, "4xx responses are not span errors")
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	exporter, rec := tracedRequest(t, http.StatusOK, func(req *http.Request) {
		req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	})

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, traceID, spans[0].SpanContext.TraceID().String())
	assert.NotEmpty(t, rec.Header().Get("traceparent"), "trace context should be injected into the response")
}

func TestTracing_InjectsResponseTraceparent(t *testing.T) {
	_, rec := tracedRequest(t, http.StatusOK, nil)
	assert.NotEmpty(t, rec.Header().Get("traceparent"))
}
