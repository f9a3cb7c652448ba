package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/AutoCRM/internal/middleware"
)

// memCache is an in-memory cache.Cache for testing.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func makeTestHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func post(handler http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_NoHeader(t *testing.T) {
	counter := 0
	store := newMemCache()
	handler := middleware.Idempotency(store, time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	rec := post(handler, "/api/v1/approvals/r1/approve", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if counter != 1 {
		t.Fatalf("expected 1 call, got %d", counter)
	}
	if store.len() != 0 {
		t.Fatal("expected nothing stored without a key")
	}
}

func TestIdempotency_SecondRequestReplays(t *testing.T) {
	counter := 0
	store := newMemCache()
	handler := middleware.Idempotency(store, time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	rec1 := post(handler, "/api/v1/chat", "key-2")
	rec2 := post(handler, "/api/v1/chat", "key-2")

	if counter != 1 {
		t.Fatalf("expected handler called once, got %d", counter)
	}
	if rec2.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec2.Code)
	}
	if rec2.Body.String() != rec1.Body.String() {
		t.Fatalf("replayed body %q, want %q", rec2.Body.String(), rec1.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected Idempotent-Replayed header on replay")
	}
}

func TestIdempotency_KeyScopedByPath(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Hour)(makeTestHandler(&counter, http.StatusOK))

	post(handler, "/api/v1/approvals/r1/approve", "same")
	post(handler, "/api/v1/approvals/r1/deny", "same")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotency_ServerErrorNotRecorded(t *testing.T) {
	counter := 0
	store := newMemCache()
	handler := middleware.Idempotency(store, time.Hour)(makeTestHandler(&counter, http.StatusBadGateway))

	post(handler, "/api/v1/chat", "retry-me")
	post(handler, "/api/v1/chat", "retry-me")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotency_GETIgnored(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemCache(), time.Hour)(makeTestHandler(&counter, http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", http.NoBody)
	req.Header.Set("Idempotency-Key", "key-get")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if counter != 1 {
		t.Fatalf("expected handler called, got %d", counter)
	}
}

func TestIdempotency_StoreFailureStillServes(t *testing.T) {
	counter := 0
	store := newMemCache()
	store.err = errors.New("bucket unavailable")
	handler := middleware.Idempotency(store, time.Hour)(makeTestHandler(&counter, http.StatusOK))

	rec := post(handler, "/api/v1/chat", "k")
	if rec.Code != http.StatusOK || counter != 1 {
		t.Fatalf("expected request served despite store failure, code=%d calls=%d", rec.Code, counter)
	}
}
