// Package memory provides an in-process implementation of database.Store.
// It backs tests and the "memory" store driver; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

// Store keeps users, orders and approvals in maps guarded by one mutex.
// Records are copied on the way in and out so callers never share memory
// with the store.
type Store struct {
	mu        sync.RWMutex
	users     map[int64]customer.User
	orders    map[int64]customer.Order
	approvals map[string]approval.Approval
	now       func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:     make(map[int64]customer.User),
		orders:    make(map[int64]customer.Order),
		approvals: make(map[string]approval.Approval),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// --- Customers ---

func (s *Store) GetUser(_ context.Context, id int64) (*customer.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("get user %d: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (*customer.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order %d: %w", id, domain.ErrNotFound)
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID int64) ([]customer.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []customer.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetOrderStatus(_ context.Context, id int64, status customer.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("set order %d status: %w", id, domain.ErrNotFound)
	}
	if o.Status == status {
		return fmt.Errorf("set order %d status %s: %w", id, status, domain.ErrConflict)
	}
	o.Status = status
	o.UpdatedAt = s.now()
	s.orders[id] = o
	return nil
}

// --- Approvals ---

func (s *Store) CreateApproval(_ context.Context, a *approval.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.approvals[a.RunID]; exists {
		return fmt.Errorf("create approval %s: %w", a.RunID, domain.ErrConflict)
	}
	s.approvals[a.RunID] = cloneApproval(*a)
	return nil
}

func (s *Store) GetApproval(_ context.Context, runID string) (*approval.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.approvals[runID]
	if !ok {
		return nil, fmt.Errorf("get approval %s: %w", runID, domain.ErrNotFound)
	}
	a = cloneApproval(a)
	return &a, nil
}

func (s *Store) ListApprovals(_ context.Context, status approval.Status) ([]approval.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []approval.Approval{}
	for _, a := range s.approvals {
		if status == "" || a.Status == status {
			out = append(out, cloneApproval(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ResolveApproval(_ context.Context, d approval.Decision) (*approval.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals[d.RunID]
	if !ok {
		return nil, fmt.Errorf("resolve approval %s: %w", d.RunID, domain.ErrNotFound)
	}
	if !a.CanResolve() {
		return nil, fmt.Errorf("resolve approval %s (already %s): %w", d.RunID, a.Status, domain.ErrConflict)
	}
	now := s.now()
	a.Status = d.Status()
	a.Decider = d.Decider
	a.Notes = d.Notes
	a.DecidedAt = &now
	s.approvals[d.RunID] = a
	out := cloneApproval(a)
	return &out, nil
}

func (s *Store) ReopenApproval(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals[runID]
	if !ok {
		return fmt.Errorf("reopen approval %s: %w", runID, domain.ErrNotFound)
	}
	if a.CanResolve() || a.Outcome != nil {
		return fmt.Errorf("reopen approval %s (%s): %w", runID, a.Status, domain.ErrConflict)
	}
	a.Status = approval.StatusPending
	a.Decider = ""
	a.Notes = ""
	a.DecidedAt = nil
	s.approvals[runID] = a
	return nil
}

func (s *Store) RecordOutcome(_ context.Context, runID string, outcome *workflow.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals[runID]
	if !ok {
		return fmt.Errorf("record outcome %s: %w", runID, domain.ErrNotFound)
	}
	a.Outcome = cloneState(outcome)
	s.approvals[runID] = a
	return nil
}

// --- Seeding ---

func (s *Store) Seed(_ context.Context, users []customer.User, orders []customer.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.users = make(map[int64]customer.User, len(users))
	for _, u := range users {
		s.users[u.ID] = u
	}
	s.orders = make(map[int64]customer.Order, len(orders))
	for _, o := range orders {
		o = cloneOrder(o)
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		o.UpdatedAt = now
		s.orders[o.ID] = o
	}
	s.approvals = make(map[string]approval.Approval)
	return nil
}

func cloneOrder(o customer.Order) customer.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func cloneApproval(a approval.Approval) approval.Approval {
	a.State = cloneState(a.State)
	a.Outcome = cloneState(a.Outcome)
	return a
}

func cloneState(s *workflow.State) *workflow.State {
	if s == nil {
		return nil
	}
	c := *s
	c.Data = maps.Clone(s.Data)
	c.Steps = slices.Clone(s.Steps)
	return &c
}
