package workflow

import (
	"time"

	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
)

// EventType identifies a trace event emitted while a run progresses.
type EventType string

const (
	EventRunStarted        EventType = "run.started"
	EventStepCompleted     EventType = "run.step"
	EventRunCompleted      EventType = "run.completed"
	EventRunFailed         EventType = "run.failed"
	EventApprovalRequested EventType = "approval.requested"
	EventApprovalResolved  EventType = "approval.resolved"
)

// Event is one entry of the step-by-step trace shown to operators.
type Event struct {
	Type                  EventType      `json:"type"`
	RunID                 string         `json:"run_id"`
	Step                  Step           `json:"step,omitempty"`
	Route                 Route          `json:"route,omitempty"`
	GuardRail             guardrail.Code `json:"guard_rail,omitempty"`
	Success               *bool          `json:"success,omitempty"`
	RequiresHumanApproval bool           `json:"requires_human_approval,omitempty"`
	Response              string         `json:"response,omitempty"`
	Error                 string         `json:"error,omitempty"`
	RequestID             string         `json:"request_id,omitempty"`
	At                    time.Time      `json:"at"`
}

// NewEvent snapshots the externally relevant fields of s.
func NewEvent(typ EventType, step Step, s *State) Event {
	ev := Event{
		Type:                  typ,
		RunID:                 s.RunID,
		Step:                  step,
		Route:                 s.Route,
		GuardRail:             s.GuardRail,
		RequiresHumanApproval: s.RequiresHumanApproval,
		Response:              s.Response,
		At:                    time.Now().UTC(),
	}
	if s.Success != nil {
		v := *s.Success
		ev.Success = &v
	}
	return ev
}
