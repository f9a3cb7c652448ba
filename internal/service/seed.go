package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/port/database"
)

// SeedService restores the demo dataset.
type SeedService struct {
	store database.Store
}

// NewSeedService creates a SeedService.
func NewSeedService(store database.Store) *SeedService {
	return &SeedService{store: store}
}

// Reset replaces users and orders with the demo fixtures and clears approvals.
func (s *SeedService) Reset(ctx context.Context) error {
	users, orders := customer.DemoUsers(), customer.DemoOrders()
	if err := s.store.Seed(ctx, users, orders); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	slog.Info("demo data reset", "users", len(users), "orders", len(orders))
	return nil
}
