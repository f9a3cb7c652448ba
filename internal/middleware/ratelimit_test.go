package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/AutoCRM/internal/config"
)

func newTestLimiter(rps float64, burst int) (*RateLimiter, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(config.Rate{
		RequestsPerSecond: rps,
		Burst:             burst,
		CleanupInterval:   time.Minute,
		MaxIdleTime:       10 * time.Minute,
	})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl, _ := newTestLimiter(1, 10)
	h := rl.Handler(okHandler)

	for i := range 10 {
		if rec := hit(h, "192.168.1.1"); rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(1, 5)
	h := rl.Handler(okHandler)

	for range 5 {
		hit(h, "192.168.1.1")
	}
	rec := hit(h, "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl, now := newTestLimiter(2, 1)
	h := rl.Handler(okHandler)

	hit(h, "10.0.0.1")
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	*now = now.Add(time.Second)
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after refill, got %d", rec.Code)
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl, _ := newTestLimiter(1, 2)
	h := rl.Handler(okHandler)

	hit(h, "10.0.0.1")
	hit(h, "10.0.0.1")
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("IP 10.0.0.1: expected 429, got %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("IP 10.0.0.2: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, now := newTestLimiter(1, 2)
	h := rl.Handler(okHandler)
	hit(h, "10.0.0.1")

	*now = now.Add(11 * time.Minute)
	hit(h, "10.0.0.2")
	rl.cleanup()

	if rl.Len() != 1 {
		t.Fatalf("expected 1 bucket after cleanup, got %d", rl.Len())
	}
}
