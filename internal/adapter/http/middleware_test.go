package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestResponseWriterHijack(t *testing.T) {
	inner := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw := &responseWriter{ResponseWriter: inner, status: http.StatusOK}
	if _, _, err := rw.Hijack(); err != nil || !inner.hijacked {
		t.Fatalf("hijack not delegated: err=%v hijacked=%v", err, inner.hijacked)
	}

	plain := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := plain.Hijack(); err == nil {
		t.Fatal("expected error when the writer cannot hijack")
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    string
		origin     string
		method     string
		wantOrigin string
		wantCode   int
		wantCalled bool
	}{
		{"preflight from allowed origin", "http://localhost:3000", "http://localhost:3000", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, false},
		{"other origin gets no headers", "http://localhost:3000", "http://evil.test", http.MethodPost, "", http.StatusOK, true},
		{"wildcard echoes origin", "*", "http://ops.test", http.MethodGet, "http://ops.test", http.StatusOK, true},
		{"no origin", "http://localhost:3000", "", http.MethodGet, "", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := CORS(tt.allowed)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
			req := httptest.NewRequest(tt.method, "/api/v1/chat", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode || called != tt.wantCalled {
				t.Fatalf("status %d called %v", rec.Code, called)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if rec.Header().Get("Vary") != "Origin" {
				t.Errorf("missing Vary: Origin")
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := chi.NewRouter()
	r.Use(Logger)
	r.Get("/api/v1/approvals/{runID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"approval not found"}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/approvals/run-9", http.NoBody))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line: %v (%q)", err, buf.String())
	}
	if entry["level"] != "WARN" || entry["route"] != "/api/v1/approvals/{runID}" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["status"] != float64(http.StatusNotFound) || entry["bytes"] != float64(len(`{"error":"approval not found"}`)) {
		t.Errorf("status/bytes not recorded: %v", entry)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	for k, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}
