package service

import (
	"context"
	"testing"

	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

func TestSeedService_ResetRestoresFixtures(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	if err := store.SetOrderStatus(ctx, 101, customer.StatusRefunded); err != nil {
		t.Fatal(err)
	}

	if err := NewSeedService(store).Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := orderStatus(t, store, 101); got != customer.StatusShipped {
		t.Errorf("order 101 status = %s, want shipped", got)
	}
	for _, u := range customer.DemoUsers() {
		if _, err := store.GetUser(ctx, u.ID); err != nil {
			t.Errorf("user %d missing after reset: %v", u.ID, err)
		}
	}
}

func TestDemoScenarios(t *testing.T) {
	names := map[string]bool{}
	for _, s := range DemoScenarios() {
		names[s.Name] = true
		req := s.Request
		if err := req.Validate(); err != nil {
			t.Errorf("%s: %v", s.Name, err)
		}
	}
	for _, n := range []string{"detective", "guardian", "manager"} {
		if !names[n] {
			t.Errorf("missing scenario %q", n)
		}
	}
	if _, ok := FindScenario("nope"); ok {
		t.Error("unexpected scenario")
	}
}

func TestTracer_NilIsSafe(t *testing.T) {
	var tr *Tracer
	tr.Emit(context.Background(), workflow.Event{Type: workflow.EventRunStarted, RunID: "r"})
	tr.Publish(context.Background(), "support.x", map[string]string{})
}

func TestTracer_PublishesRunEvents(t *testing.T) {
	q := &memQueue{}
	hub := &recordingBroadcaster{}
	st := workflow.NewState("run-9", workflow.Request{Message: "hi", UserID: 1})
	NewTracer(hub, q).Emit(context.Background(), workflow.NewEvent(workflow.EventStepCompleted, workflow.StepTriage, st))

	if got := q.subjects(); len(got) != 1 || got[0] != "support.runs.events.run.step" {
		t.Errorf("subjects = %v", got)
	}
	if got := hub.types(); len(got) != 1 || got[0] != "run.step" {
		t.Errorf("hub events = %v", got)
	}
}
