package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/AutoCRM/internal/port/cache"
)

type mapCache struct {
	data   map[string][]byte
	getErr error
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type record struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestJSONRoundTripThroughCache(t *testing.T) {
	c := &mapCache{data: map[string][]byte{}}
	ctx := context.Background()

	if err := cache.SetJSON(ctx, c, "user:1", &record{ID: 1, Name: "Alice"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.GetJSON[record](ctx, c, "user:1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Name != "Alice" {
		t.Fatalf("expected Alice, got %q", got.Name)
	}
}

func TestGetJSON_Miss(t *testing.T) {
	c := &mapCache{data: map[string][]byte{}}
	_, ok, err := cache.GetJSON[record](context.Background(), c, "user:404")
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestGetJSON_CorruptEntryIsMiss(t *testing.T) {
	c := &mapCache{data: map[string][]byte{"user:1": []byte("{not json")}}
	_, ok, err := cache.GetJSON[record](context.Background(), c, "user:1")
	if err != nil || ok {
		t.Fatalf("expected corrupt entry to be a miss, got ok=%v err=%v", ok, err)
	}
}

func TestGetJSON_PropagatesBackendError(t *testing.T) {
	boom := errors.New("kv unavailable")
	c := &mapCache{data: map[string][]byte{}, getErr: boom}
	_, _, err := cache.GetJSON[record](context.Background(), c, "user:1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
