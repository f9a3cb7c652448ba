// Package database defines the data store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

// CustomerStore is the read/write surface the specialist handlers consume.
type CustomerStore interface {
	// GetUser returns domain.ErrNotFound when no user has the id.
	GetUser(ctx context.Context, id int64) (*customer.User, error)
	// GetOrder returns domain.ErrNotFound when no order has the id.
	GetOrder(ctx context.Context, id int64) (*customer.Order, error)
	// ListOrdersByUser returns an empty slice, not an error, when the user has no orders.
	ListOrdersByUser(ctx context.Context, userID int64) ([]customer.Order, error)
	// SetOrderStatus atomically moves an order to status. It returns
	// domain.ErrNotFound for an unknown id and domain.ErrConflict when the
	// order already has that status, so two concurrent writers cannot both succeed.
	SetOrderStatus(ctx context.Context, id int64, status customer.OrderStatus) error
}

// ApprovalStore persists suspended runs keyed by run id.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a *approval.Approval) error
	GetApproval(ctx context.Context, runID string) (*approval.Approval, error)
	// ListApprovals filters by status; an empty status lists every record.
	ListApprovals(ctx context.Context, status approval.Status) ([]approval.Approval, error)
	// ResolveApproval claims a pending approval for d. Only one caller wins:
	// later calls get domain.ErrConflict.
	ResolveApproval(ctx context.Context, d approval.Decision) (*approval.Approval, error)
	// ReopenApproval returns a claimed approval to pending when its decision
	// could not be carried out. Only records without an outcome can be
	// reopened; others get domain.ErrConflict.
	ReopenApproval(ctx context.Context, runID string) error
	// RecordOutcome stores the final state of a resolved run.
	RecordOutcome(ctx context.Context, runID string, outcome *workflow.State) error
}

// Store is the port interface for database operations.
type Store interface {
	CustomerStore
	ApprovalStore

	// Seed replaces all users and orders with the given fixtures and clears approvals.
	Seed(ctx context.Context, users []customer.User, orders []customer.Order) error
}
