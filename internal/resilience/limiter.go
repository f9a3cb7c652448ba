package resilience

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many callers run at once. Waiting callers give up when
// their context ends. A nil Limiter runs everything immediately.
type Limiter struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewLimiter allows at most limit concurrent calls. limit < 1 returns nil,
// which means unlimited.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		return nil
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(limit))}
}

// Do waits for a slot, runs fn, and releases the slot.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inFlight.Add(1)
	defer func() {
		l.inFlight.Add(-1)
		l.sem.Release(1)
	}()
	return fn(ctx)
}

// InFlight reports how many calls currently hold a slot.
func (l *Limiter) InFlight() int64 {
	if l == nil {
		return 0
	}
	return l.inFlight.Load()
}
