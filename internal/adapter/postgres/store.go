package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Customers ---

func (s *Store) GetUser(ctx context.Context, id int64) (*customer.User, error) {
	var u customer.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, card_last4 FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CardLast4)
	if err != nil {
		return nil, notFoundWrap(err, "get user %d", id)
	}
	return &u, nil
}

const orderColumns = `id, user_id, status, amount::float8, items, created_at, updated_at`

func scanOrder(row scannable) (customer.Order, error) {
	var (
		o      customer.Order
		status string
		items  []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.Amount, &items, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return o, err
	}
	o.Status = customer.OrderStatus(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("decode items of order %d: %w", o.ID, err)
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*customer.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get order %d", id)
	}
	return &o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]customer.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	var orders []customer.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orEmpty(orders), rows.Err()
}

// SetOrderStatus relies on the status guard in the WHERE clause: under
// concurrent writers the row lock lets exactly one UPDATE match.
func (s *Store) SetOrderStatus(ctx context.Context, id int64, status customer.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 AND status <> $2`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("set order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetOrder(ctx, id); err != nil {
		return fmt.Errorf("set order %d status: %w", id, err)
	}
	return fmt.Errorf("set order %d status %s: %w", id, status, domain.ErrConflict)
}

// --- Approvals ---

const approvalColumns = `run_id, route, guard_rail, user_id, order_id, amount::float8, ceiling::float8,
	state, outcome, status, decider, notes, created_at, decided_at`

func scanApproval(row scannable) (approval.Approval, error) {
	var (
		a                   approval.Approval
		route, rail, status string
		state, outcome      []byte
	)
	err := row.Scan(&a.RunID, &route, &rail, &a.UserID, &a.OrderID, &a.Amount, &a.Ceiling,
		&state, &outcome, &status, &a.Decider, &a.Notes, &a.CreatedAt, &a.DecidedAt)
	if err != nil {
		return a, err
	}
	a.Route = workflow.Route(route)
	a.GuardRail = guardrail.Code(rail)
	a.Status = approval.Status(status)
	a.State = &workflow.State{}
	if err := json.Unmarshal(state, a.State); err != nil {
		return a, fmt.Errorf("decode state of %s: %w", a.RunID, err)
	}
	if outcome != nil {
		a.Outcome = &workflow.State{}
		if err := json.Unmarshal(outcome, a.Outcome); err != nil {
			return a, fmt.Errorf("decode outcome of %s: %w", a.RunID, err)
		}
	}
	return a, nil
}

func (s *Store) CreateApproval(ctx context.Context, a *approval.Approval) error {
	state, err := json.Marshal(a.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO approvals (run_id, route, guard_rail, user_id, order_id, amount, ceiling, state, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.RunID, string(a.Route), string(a.GuardRail), a.UserID, a.OrderID, a.Amount, a.Ceiling,
		state, string(a.Status), a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create approval %s: %w", a.RunID, domain.ErrConflict)
		}
		return fmt.Errorf("create approval %s: %w", a.RunID, err)
	}
	return nil
}

func (s *Store) GetApproval(ctx context.Context, runID string) (*approval.Approval, error) {
	a, err := scanApproval(s.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE run_id = $1`, runID))
	if err != nil {
		return nil, notFoundWrap(err, "get approval %s", runID)
	}
	return &a, nil
}

func (s *Store) ListApprovals(ctx context.Context, status approval.Status) ([]approval.Approval, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+approvalColumns+` FROM approvals
		 WHERE $1::text = '' OR status = $1::text
		 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []approval.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	return orEmpty(out), rows.Err()
}

// ResolveApproval claims the record with a single conditional UPDATE so
// only one decision can move it out of pending.
func (s *Store) ResolveApproval(ctx context.Context, d approval.Decision) (*approval.Approval, error) {
	a, err := scanApproval(s.pool.QueryRow(ctx,
		`UPDATE approvals SET status = $2, decider = $3, notes = $4, decided_at = now()
		 WHERE run_id = $1 AND status = 'pending'
		 RETURNING `+approvalColumns,
		d.RunID, string(d.Status()), d.Decider, d.Notes))
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resolve approval %s: %w", d.RunID, err)
	}
	existing, err := s.GetApproval(ctx, d.RunID)
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	return nil, fmt.Errorf("resolve approval %s (already %s): %w", d.RunID, existing.Status, domain.ErrConflict)
}

// ReopenApproval undoes a claim whose decision was never carried out.
func (s *Store) ReopenApproval(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE approvals SET status = 'pending', decider = '', notes = '', decided_at = NULL
		 WHERE run_id = $1 AND status <> 'pending' AND outcome IS NULL`, runID)
	if err != nil {
		return fmt.Errorf("reopen approval %s: %w", runID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	a, err := s.GetApproval(ctx, runID)
	if err != nil {
		return fmt.Errorf("reopen approval: %w", err)
	}
	return fmt.Errorf("reopen approval %s (%s): %w", runID, a.Status, domain.ErrConflict)
}

func (s *Store) RecordOutcome(ctx context.Context, runID string, outcome *workflow.State) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE approvals SET outcome = $2 WHERE run_id = $1`, runID, data)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record outcome %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// --- Seeding ---

func (s *Store) Seed(ctx context.Context, users []customer.User, orders []customer.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `TRUNCATE approvals, orders, users`); err != nil {
		return fmt.Errorf("seed truncate: %w", err)
	}

	batch := &pgx.Batch{}
	for _, u := range users {
		batch.Queue(`INSERT INTO users (id, name, email, card_last4) VALUES ($1, $2, $3, $4)`,
			u.ID, u.Name, u.Email, u.CardLast4)
	}
	for _, o := range orders {
		items, err := json.Marshal(orEmpty(o.Items))
		if err != nil {
			return fmt.Errorf("encode items of order %d: %w", o.ID, err)
		}
		if o.CreatedAt.IsZero() {
			batch.Queue(`INSERT INTO orders (id, user_id, status, amount, items) VALUES ($1, $2, $3, $4, $5)`,
				o.ID, o.UserID, string(o.Status), o.Amount, items)
		} else {
			batch.Queue(`INSERT INTO orders (id, user_id, status, amount, items, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, o.UserID, string(o.Status), o.Amount, items, o.CreatedAt)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}
	return nil
}
