package memory_test

import (
	"context"
	"testing"

	"github.com/Strob0t/AutoCRM/internal/adapter/memory"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/port/database"
	"github.com/Strob0t/AutoCRM/internal/port/database/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) database.Store { return memory.NewStore() })
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	if err := s.Seed(ctx, customer.DemoUsers(), customer.DemoOrders()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	o, _ := s.GetOrder(ctx, 102)
	o.Items[0].Name = "mutated"
	again, _ := s.GetOrder(ctx, 102)
	if again.Items[0].Name == "mutated" {
		t.Fatal("store shares item slice with caller")
	}

	a := storetest.PendingRefundApproval("run-x")
	if err := s.CreateApproval(ctx, a); err != nil {
		t.Fatalf("CreateApproval: %v", err)
	}
	a.State.Data["amount"] = 1.0
	got, _ := s.GetApproval(ctx, "run-x")
	if got.State.Data["amount"] != 599.99 {
		t.Fatal("store shares state data with caller")
	}
}
