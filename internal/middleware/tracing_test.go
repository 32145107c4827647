package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracing installs a recording tracer provider and W3C
// propagation, restoring the globals when the test ends.
func setupTestTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	return recorder
}

// TestTracingCreatesServerSpan: every request gets a server span named
// method + path, and the handler sees an active span context.
func TestTracingCreatesServerSpan(t *testing.T) {
	recorder := setupTestTracing(t)

	var traceID string
	handler := Tracing("vicinity-feed")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = GetTraceID(r)
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/get-suggested-posts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if traceID == "" {
		t.Error("no active trace in handler context")
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].Name(); got != "POST /get-suggested-posts" {
		t.Errorf("span name = %q, want %q", got, "POST /get-suggested-posts")
	}
}

// TestTracingPropagatesParentContext: a caller-supplied traceparent
// header makes the server span a child of the remote trace instead of a
// new root.
func TestTracingPropagatesParentContext(t *testing.T) {
	recorder := setupTestTracing(t)

	const (
		parentTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
		parentSpanID  = "00f067aa0ba902b7"
	)

	handler := Tracing("vicinity-feed")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/get-suggested-posts", nil)
	r.Header.Set("traceparent", "00-"+parentTraceID+"-"+parentSpanID+"-01")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if got := span.SpanContext().TraceID().String(); got != parentTraceID {
		t.Errorf("trace id = %s, want caller's %s", got, parentTraceID)
	}
	parent := span.Parent()
	if !parent.IsValid() || !parent.IsRemote() {
		t.Fatalf("server span has no remote parent: %+v", parent)
	}
	if got := parent.SpanID().String(); got != parentSpanID {
		t.Errorf("parent span id = %s, want %s", got, parentSpanID)
	}
}

// TestGetTraceIDNoActiveSpan returns empty outside a trace.
func TestGetTraceIDNoActiveSpan(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetTraceID(r); got != "" {
		t.Errorf("GetTraceID = %q, want empty", got)
	}
	if got := GetSpanID(r); got != "" {
		t.Errorf("GetSpanID = %q, want empty", got)
	}
}
