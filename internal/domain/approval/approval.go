// Package approval defines the persisted record of a run that was suspended
// pending a human decision, and the decision that resolves it.
package approval

import (
	"time"

	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

// Status is the lifecycle state of a suspended run.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Approval is a suspended run keyed by its run id.
type Approval struct {
	RunID     string          `json:"run_id"`
	Route     workflow.Route  `json:"route"`
	GuardRail guardrail.Code  `json:"guard_rail"`
	UserID    int64           `json:"user_id"`
	OrderID   *int64          `json:"order_id,omitempty"`
	Amount    *float64        `json:"amount,omitempty"`
	Ceiling   float64         `json:"ceiling,omitempty"`
	State     *workflow.State `json:"state"`
	Outcome   *workflow.State `json:"outcome,omitempty"`
	Status    Status          `json:"status"`
	Decider   string          `json:"decider,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
}

// FromState builds a pending approval from the state of a suspended run.
func FromState(s *workflow.State, ceiling float64) *Approval {
	a := &Approval{
		RunID:     s.RunID,
		Route:     s.Route,
		GuardRail: s.GuardRail,
		UserID:    s.UserID,
		OrderID:   s.OrderID,
		Amount:    s.Amount,
		State:     s,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if s.GuardRail == guardrail.RequiresApproval {
		a.Ceiling = ceiling
	}
	return a
}

// CanResolve reports whether the approval is still awaiting a decision.
func (a *Approval) CanResolve() bool {
	return a.Status == StatusPending
}

// Decision is a human verdict on a suspended run.
type Decision struct {
	RunID    string `json:"run_id"`
	Approved bool   `json:"approved"`
	Decider  string `json:"decider"`
	Notes    string `json:"notes,omitempty"`
}

// Status returns the terminal status this decision moves an approval to.
func (d Decision) Status() Status {
	if d.Approved {
		return StatusApproved
	}
	return StatusDenied
}
