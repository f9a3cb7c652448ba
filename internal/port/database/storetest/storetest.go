// Package storetest holds the behavioural checks every database.Store
// implementation must pass. Adapter tests call Run with their own constructor.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/port/database"
)

// Run executes the suite. newStore must return an empty, ready store.
func Run(t *testing.T, newStore func(t *testing.T) database.Store) {
	seeded := func(t *testing.T) database.Store {
		t.Helper()
		s := newStore(t)
		if err := s.Seed(context.Background(), customer.DemoUsers(), customer.DemoOrders()); err != nil {
			t.Fatalf("seed: %v", err)
		}
		return s
	}

	t.Run("GetUserAndOrder", func(t *testing.T) { testGetUserAndOrder(t, seeded(t)) })
	t.Run("ListOrdersByUser", func(t *testing.T) { testListOrdersByUser(t, seeded(t)) })
	t.Run("SetOrderStatusConflict", func(t *testing.T) { testSetOrderStatusConflict(t, seeded(t)) })
	t.Run("SetOrderStatusSingleWinner", func(t *testing.T) { testSetOrderStatusSingleWinner(t, seeded(t)) })
	t.Run("ApprovalLifecycle", func(t *testing.T) { testApprovalLifecycle(t, seeded(t)) })
	t.Run("SeedResets", func(t *testing.T) { testSeedResets(t, seeded(t)) })
}

func testGetUserAndOrder(t *testing.T, s database.Store) {
	ctx := context.Background()

	u, err := s.GetUser(ctx, 2)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Name != "Bob Smith" || u.CardLast4 != "5555" {
		t.Errorf("unexpected user %+v", u)
	}

	o, err := s.GetOrder(ctx, 102)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if o.UserID != 2 || o.Amount != 89.50 || o.Status != customer.StatusDelivered {
		t.Errorf("unexpected order %+v", o)
	}
	if len(o.Items) != 2 || o.Items[1].Name != "Mouse Pad" || o.Items[1].Qty != 2 {
		t.Errorf("unexpected items %+v", o.Items)
	}
	if o.CreatedAt.IsZero() {
		t.Error("expected CreatedAt stamped on seed")
	}

	if _, err := s.GetUser(ctx, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetUser(99) err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetOrder(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetOrder(999) err = %v, want ErrNotFound", err)
	}
}

func testListOrdersByUser(t *testing.T, s database.Store) {
	ctx := context.Background()

	orders, err := s.ListOrdersByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListOrdersByUser: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 101 || orders[1].ID != 104 {
		t.Fatalf("unexpected orders: %+v", orders)
	}

	none, err := s.ListOrdersByUser(ctx, 42)
	if err != nil {
		t.Fatalf("ListOrdersByUser(42): %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func testSetOrderStatusConflict(t *testing.T, s database.Store) {
	ctx := context.Background()

	if err := s.SetOrderStatus(ctx, 101, customer.StatusRefunded); err != nil {
		t.Fatalf("first SetOrderStatus: %v", err)
	}
	o, _ := s.GetOrder(ctx, 101)
	if o.Status != customer.StatusRefunded {
		t.Fatalf("status = %s, want refunded", o.Status)
	}
	if err := s.SetOrderStatus(ctx, 101, customer.StatusRefunded); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second SetOrderStatus err = %v, want ErrConflict", err)
	}
	if err := s.SetOrderStatus(ctx, 999, customer.StatusRefunded); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown order err = %v, want ErrNotFound", err)
	}
}

func testSetOrderStatusSingleWinner(t *testing.T, s database.Store) {
	ctx := context.Background()

	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.SetOrderStatus(ctx, 104, customer.StatusRefunded); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

// PendingRefundApproval builds a REQUIRES_APPROVAL suspension for order 103.
func PendingRefundApproval(runID string) *approval.Approval {
	orderID := int64(103)
	amount := 599.99
	st := workflow.NewState(runID, workflow.Request{
		Message: "I want a $599 refund for order #103", UserID: 3, OrderID: &orderID, Amount: &amount,
	})
	st.Route = workflow.RouteRefund
	st.GuardRail = guardrail.RequiresApproval
	st.RequiresHumanApproval = true
	st.Success = workflow.Bool(false)
	st.Response = "A manager will review this." + workflow.ApprovalMarker
	st.Data = map[string]any{"order_id": float64(orderID), "amount": amount, "threshold": 50.0}
	st.Steps = []workflow.Step{workflow.StepTriage, workflow.StepRefund, workflow.StepApproval}
	return approval.FromState(st, 50)
}

func testApprovalLifecycle(t *testing.T, s database.Store) {
	ctx := context.Background()

	if err := s.CreateApproval(ctx, PendingRefundApproval("run-1")); err != nil {
		t.Fatalf("CreateApproval: %v", err)
	}
	if err := s.CreateApproval(ctx, PendingRefundApproval("run-1")); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate CreateApproval err = %v, want ErrConflict", err)
	}

	a, err := s.GetApproval(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetApproval: %v", err)
	}
	if a.Status != approval.StatusPending || a.GuardRail != guardrail.RequiresApproval || a.Ceiling != 50 {
		t.Fatalf("unexpected approval %+v", a)
	}
	if a.OrderID == nil || *a.OrderID != 103 || a.Amount == nil || *a.Amount != 599.99 {
		t.Fatalf("unexpected order/amount on approval %+v", a)
	}
	if a.State == nil || a.State.Route != workflow.RouteRefund || len(a.State.Steps) != 3 {
		t.Fatalf("state snapshot not preserved: %+v", a.State)
	}

	pending, err := s.ListApprovals(ctx, approval.StatusPending)
	if err != nil {
		t.Fatalf("ListApprovals: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}

	got, err := s.ResolveApproval(ctx, approval.Decision{RunID: "run-1", Approved: true, Decider: "dana", Notes: "ok"})
	if err != nil {
		t.Fatalf("ResolveApproval: %v", err)
	}
	if got.Status != approval.StatusApproved || got.Decider != "dana" || got.Notes != "ok" || got.DecidedAt == nil {
		t.Fatalf("unexpected resolved approval %+v", got)
	}

	if err := s.ReopenApproval(ctx, "run-1"); err != nil {
		t.Fatalf("ReopenApproval: %v", err)
	}
	a, _ = s.GetApproval(ctx, "run-1")
	if a.Status != approval.StatusPending || a.Decider != "" || a.DecidedAt != nil {
		t.Fatalf("reopened approval not pending: %+v", a)
	}
	if err := s.ReopenApproval(ctx, "run-1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("reopen pending err = %v, want ErrConflict", err)
	}
	if err := s.ReopenApproval(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("reopen unknown err = %v, want ErrNotFound", err)
	}
	if _, err := s.ResolveApproval(ctx, approval.Decision{RunID: "run-1", Approved: true, Decider: "dana", Notes: "ok"}); err != nil {
		t.Fatalf("ResolveApproval after reopen: %v", err)
	}

	if _, err := s.ResolveApproval(ctx, approval.Decision{RunID: "run-1", Approved: false}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second ResolveApproval err = %v, want ErrConflict", err)
	}
	if _, err := s.ResolveApproval(ctx, approval.Decision{RunID: "nope"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown ResolveApproval err = %v, want ErrNotFound", err)
	}

	outcome := workflow.NewState("run-1", workflow.Request{Message: "refund", UserID: 3})
	outcome.Success = workflow.Bool(true)
	if err := s.RecordOutcome(ctx, "run-1", outcome); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	a, _ = s.GetApproval(ctx, "run-1")
	if a.Outcome == nil || !a.Outcome.Succeeded() {
		t.Fatalf("expected successful outcome, got %+v", a.Outcome)
	}
	if err := s.ReopenApproval(ctx, "run-1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("reopen finalized err = %v, want ErrConflict", err)
	}
	if err := s.RecordOutcome(ctx, "nope", outcome); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("RecordOutcome unknown err = %v, want ErrNotFound", err)
	}

	all, _ := s.ListApprovals(ctx, "")
	pending, _ = s.ListApprovals(ctx, approval.StatusPending)
	if len(all) != 1 || len(pending) != 0 {
		t.Fatalf("all=%d pending=%d, want 1 and 0", len(all), len(pending))
	}
}

func testSeedResets(t *testing.T, s database.Store) {
	ctx := context.Background()
	_ = s.CreateApproval(ctx, PendingRefundApproval("run-2"))
	_ = s.SetOrderStatus(ctx, 103, customer.StatusRefunded)

	if err := s.Seed(ctx, customer.DemoUsers(), customer.DemoOrders()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := s.GetApproval(ctx, "run-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected approvals cleared, got %v", err)
	}
	o, _ := s.GetOrder(ctx, 103)
	if o.Status != customer.StatusProcessing {
		t.Fatalf("status = %s, want processing after reseed", o.Status)
	}
}
