package otel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Strob0t/AutoCRM/internal/config"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.OTel{Enabled: false}, "autocrm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewMetricsOnNoopProvider(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RunsStarted.Add(context.Background(), 1)
	m.RunDuration.Record(context.Background(), 0.25)
}

func TestSpansEndWithoutProvider(t *testing.T) {
	ctx, run := StartRunSpan(context.Background(), "run-1", 1)
	_, step := StartStepSpan(ctx, "run-1", "triage")
	EndSpan(step, errors.New("boom"))
	EndSpan(run, nil)
}

func TestHTTPMiddlewareNamesSpansByRoute(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Use(HTTPMiddleware("autocrm", otelhttp.WithTracerProvider(tp)))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/api/v1/approvals/{runID}/approve", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/approvals/run-1/approve", http.NoBody))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span (health filtered), got %d", len(spans))
	}
	if got := spans[0].Name(); got != "POST /api/v1/approvals/{runID}/approve" {
		t.Errorf("span name = %q", got)
	}
}
