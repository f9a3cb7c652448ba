package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

// Store implements database.Store on SQLite.
type Store struct {
	db *sql.DB
}

type scannable interface {
	Scan(dest ...any) error
}

func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// --- Customers ---

func (s *Store) GetUser(ctx context.Context, id int64) (*customer.User, error) {
	var u customer.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, card_last4 FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CardLast4)
	if err != nil {
		return nil, notFoundWrap(err, "get user %d", id)
	}
	return &u, nil
}

const orderColumns = `id, user_id, status, amount, items, created_at, updated_at`

func scanOrder(row scannable) (customer.Order, error) {
	var (
		o                customer.Order
		status, items    string
		created, updated string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.Amount, &items, &created, &updated); err != nil {
		return o, err
	}
	o.Status = customer.OrderStatus(status)
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return o, fmt.Errorf("decode items of order %d: %w", o.ID, err)
	}
	o.CreatedAt = parseTime(created)
	o.UpdatedAt = parseTime(updated)
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*customer.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get order %d", id)
	}
	return &o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]customer.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	orders := []customer.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SetOrderStatus relies on the status guard in the WHERE clause so that of
// two concurrent writers only one affects a row.
func (s *Store) SetOrderStatus(ctx context.Context, id int64, status customer.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`,
		string(status), formatTime(time.Now()), id, string(status))
	if err != nil {
		return fmt.Errorf("set order %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set order %d status: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetOrder(ctx, id); err != nil {
		return fmt.Errorf("set order %d status: %w", id, err)
	}
	return fmt.Errorf("set order %d status %s: %w", id, status, domain.ErrConflict)
}

// --- Approvals ---

const approvalColumns = `run_id, route, guard_rail, user_id, order_id, amount, ceiling, state, outcome, status, decider, notes, created_at, decided_at`

func scanApproval(row scannable) (approval.Approval, error) {
	var (
		a                   approval.Approval
		route, rail, status string
		orderID             sql.NullInt64
		amount              sql.NullFloat64
		state               string
		outcome, decided    sql.NullString
		created             string
	)
	err := row.Scan(&a.RunID, &route, &rail, &a.UserID, &orderID, &amount, &a.Ceiling,
		&state, &outcome, &status, &a.Decider, &a.Notes, &created, &decided)
	if err != nil {
		return a, err
	}
	a.Route = workflow.Route(route)
	a.GuardRail = guardrail.Code(rail)
	a.Status = approval.Status(status)
	if orderID.Valid {
		a.OrderID = &orderID.Int64
	}
	if amount.Valid {
		a.Amount = &amount.Float64
	}
	a.State = &workflow.State{}
	if err := json.Unmarshal([]byte(state), a.State); err != nil {
		return a, fmt.Errorf("decode state of %s: %w", a.RunID, err)
	}
	if outcome.Valid {
		a.Outcome = &workflow.State{}
		if err := json.Unmarshal([]byte(outcome.String), a.Outcome); err != nil {
			return a, fmt.Errorf("decode outcome of %s: %w", a.RunID, err)
		}
	}
	a.CreatedAt = parseTime(created)
	if decided.Valid {
		t := parseTime(decided.String)
		a.DecidedAt = &t
	}
	return a, nil
}

func (s *Store) CreateApproval(ctx context.Context, a *approval.Approval) error {
	state, err := json.Marshal(a.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO approvals (run_id, route, guard_rail, user_id, order_id, amount, ceiling, state, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO NOTHING`,
		a.RunID, string(a.Route), string(a.GuardRail), a.UserID, a.OrderID, a.Amount, a.Ceiling,
		string(state), string(a.Status), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create approval %s: %w", a.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("create approval %s: %w", a.RunID, domain.ErrConflict)
	}
	return nil
}

func (s *Store) GetApproval(ctx context.Context, runID string) (*approval.Approval, error) {
	a, err := scanApproval(s.db.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE run_id = ?`, runID))
	if err != nil {
		return nil, notFoundWrap(err, "get approval %s", runID)
	}
	return &a, nil
}

func (s *Store) ListApprovals(ctx context.Context, status approval.Status) ([]approval.Approval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+approvalColumns+` FROM approvals
		 WHERE ? = '' OR status = ?
		 ORDER BY created_at DESC`, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []approval.Approval{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ResolveApproval(ctx context.Context, d approval.Decision) (*approval.Approval, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE approvals SET status = ?, decider = ?, notes = ?, decided_at = ?
		 WHERE run_id = ? AND status = ?`,
		string(d.Status()), d.Decider, d.Notes, formatTime(time.Now()), d.RunID, string(approval.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("resolve approval %s: %w", d.RunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("resolve approval %s: %w", d.RunID, err)
	}
	a, err := s.GetApproval(ctx, d.RunID)
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("resolve approval %s (already %s): %w", d.RunID, a.Status, domain.ErrConflict)
	}
	return a, nil
}

func (s *Store) ReopenApproval(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE approvals SET status = ?, decider = '', notes = '', decided_at = NULL
		 WHERE run_id = ? AND status <> ? AND outcome IS NULL`,
		string(approval.StatusPending), runID, string(approval.StatusPending))
	if err != nil {
		return fmt.Errorf("reopen approval %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
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
	res, err := s.db.ExecContext(ctx,
		`UPDATE approvals SET outcome = ? WHERE run_id = ?`, string(data), runID)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record outcome %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// --- Seeding ---

func (s *Store) Seed(ctx context.Context, users []customer.User, orders []customer.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM approvals`, `DELETE FROM orders`, `DELETE FROM users`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed clear: %w", err)
		}
	}
	for _, u := range users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, card_last4) VALUES (?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.CardLast4); err != nil {
			return fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}
	now := time.Now()
	for _, o := range orders {
		items, err := json.Marshal(orEmpty(o.Items))
		if err != nil {
			return fmt.Errorf("encode items of order %d: %w", o.ID, err)
		}
		created := o.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, status, amount, items, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.UserID, string(o.Status), o.Amount, string(items), formatTime(created), formatTime(now)); err != nil {
			return fmt.Errorf("seed order %d: %w", o.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}
	return nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
