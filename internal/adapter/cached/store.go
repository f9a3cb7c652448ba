// Package cached decorates a database.Store with a read-through cache for
// user records, which the workflow reads on every refund and never writes.
package cached

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/port/cache"
	"github.com/Strob0t/AutoCRM/internal/port/database"
)

// Store serves GetUser from the cache and delegates everything else.
type Store struct {
	database.Store
	cache cache.Cache
	ttl   time.Duration

	mu     sync.Mutex
	filled map[int64]struct{} // ids this process has written to the cache
}

// NewStore wraps inner. Cached entries live for ttl.
func NewStore(inner database.Store, c cache.Cache, ttl time.Duration) *Store {
	return &Store{Store: inner, cache: c, ttl: ttl, filled: make(map[int64]struct{})}
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

// GetUser returns the cached record when present. Cache failures fall back
// to the underlying store.
func (s *Store) GetUser(ctx context.Context, id int64) (*customer.User, error) {
	key := userKey(id)
	u, ok, err := cache.GetJSON[customer.User](ctx, s.cache, key)
	if err != nil {
		slog.Warn("user cache read failed", "user_id", id, "error", err)
	}
	if ok {
		return u, nil
	}

	u, err = s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, u, s.ttl); err != nil {
		slog.Warn("user cache write failed", "user_id", id, "error", err)
		return u, nil
	}
	s.mu.Lock()
	s.filled[id] = struct{}{}
	s.mu.Unlock()
	return u, nil
}

// Seed replaces the fixtures and evicts the seeded users plus every user
// this process has cached, so a shared L2 entry cannot outlive a reset.
func (s *Store) Seed(ctx context.Context, users []customer.User, orders []customer.Order) error {
	if err := s.Store.Seed(ctx, users, orders); err != nil {
		return err
	}

	s.mu.Lock()
	evict := s.filled
	s.filled = make(map[int64]struct{})
	s.mu.Unlock()
	for _, u := range users {
		evict[u.ID] = struct{}{}
	}
	for id := range evict {
		if err := s.cache.Delete(ctx, userKey(id)); err != nil {
			slog.Warn("user cache evict failed", "user_id", id, "error", err)
		}
	}
	return nil
}
