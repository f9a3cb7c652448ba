// Package workflow defines the request, state, and trace types threaded through
// one run of the support workflow: triage, one specialist, and optionally the
// human approval step.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
)

// Route is the specialist category chosen for a request.
type Route string

const (
	RouteOrder    Route = "order"
	RouteSecurity Route = "security"
	RouteRefund   Route = "refund"
)

// Routes lists every valid route.
var Routes = []Route{RouteOrder, RouteSecurity, RouteRefund}

// Valid reports whether r is one of the known routes.
func (r Route) Valid() bool {
	switch r {
	case RouteOrder, RouteSecurity, RouteRefund:
		return true
	}
	return false
}

// ParseRoute lower-cases and trims s and reports whether the result is a valid route.
func ParseRoute(s string) (Route, bool) {
	r := Route(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Step names a node of the workflow graph.
type Step string

const (
	StepTriage   Step = "triage"
	StepOrder    Step = "order"
	StepSecurity Step = "security"
	StepRefund   Step = "refund"
	StepApproval Step = "human_approval"
)

// StepFor returns the specialist step for a route.
func StepFor(r Route) Step {
	switch r {
	case RouteSecurity:
		return StepSecurity
	case RouteRefund:
		return StepRefund
	default:
		return StepOrder
	}
}

// ApprovalMarker is appended to the response when a run is suspended.
const ApprovalMarker = "\n\n[WAITING FOR HUMAN APPROVAL]"

// Request is the immutable input of a run.
type Request struct {
	Message   string   `json:"message"`
	UserID    int64    `json:"user_id"`
	OrderID   *int64   `json:"order_id,omitempty"`
	CardLast4 *string  `json:"card_last4,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
}

// Validate checks the fields every route needs.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: message is required", domain.ErrValidation)
	}
	if r.UserID <= 0 {
		return fmt.Errorf("%w: user id must be positive", domain.ErrValidation)
	}
	return nil
}

// State accumulates step outputs over one run.
type State struct {
	RunID string `json:"run_id"`
	Request
	Route                 Route          `json:"route,omitempty"`
	Response              string         `json:"response,omitempty"`
	Success               *bool          `json:"success,omitempty"`
	GuardRail             guardrail.Code `json:"guard_rail,omitempty"`
	RequiresHumanApproval bool           `json:"requires_human_approval"`
	Data                  map[string]any `json:"data,omitempty"`
	Steps                 []Step         `json:"steps,omitempty"`
}

// NewState builds the initial state of a run from its request.
func NewState(runID string, req Request) *State {
	return &State{RunID: runID, Request: req}
}

var (
	ErrRouteAlreadySet     = errors.New("route already set")
	ErrResponseAlreadySet  = errors.New("response already set")
	ErrGuardRailAlreadySet = errors.New("guard rail already set")
	ErrNothingToAnnotate   = errors.New("no response to annotate")
)

// Update is the partial state change returned by a step. Nil fields are left untouched.
type Update struct {
	Route                 *Route
	Response              *string
	AppendResponse        string
	Success               *bool
	GuardRail             guardrail.Code
	RequiresHumanApproval *bool
	Data                  map[string]any
}

// Apply merges u into s. Route and Response may each be written once;
// AppendResponse annotates a response written by an earlier step.
func (s *State) Apply(step Step, u Update) error {
	if u.Route != nil {
		if s.Route != "" {
			return fmt.Errorf("%s: %w", step, ErrRouteAlreadySet)
		}
		s.Route = *u.Route
	}
	if u.Response != nil {
		if s.Response != "" {
			return fmt.Errorf("%s: %w", step, ErrResponseAlreadySet)
		}
		s.Response = *u.Response
	}
	if u.AppendResponse != "" {
		if s.Response == "" {
			return fmt.Errorf("%s: %w", step, ErrNothingToAnnotate)
		}
		s.Response += u.AppendResponse
	}
	if u.Success != nil {
		v := *u.Success
		s.Success = &v
	}
	if u.GuardRail.Fired() {
		if s.GuardRail.Fired() && s.GuardRail != u.GuardRail {
			return fmt.Errorf("%s: %w", step, ErrGuardRailAlreadySet)
		}
		s.GuardRail = u.GuardRail
	}
	if u.RequiresHumanApproval != nil {
		s.RequiresHumanApproval = *u.RequiresHumanApproval
	}
	if len(u.Data) > 0 {
		if s.Data == nil {
			s.Data = make(map[string]any, len(u.Data))
		}
		for k, v := range u.Data {
			s.Data[k] = v
		}
	}
	s.Steps = append(s.Steps, step)
	return nil
}

// Succeeded reports the tri-state success flag, treating unset as false.
func (s *State) Succeeded() bool {
	return s.Success != nil && *s.Success
}

// Result is the externally relevant view of a finished run.
type Result struct {
	RunID                 string         `json:"run_id"`
	Route                 Route          `json:"route"`
	Response              string         `json:"response"`
	GuardRail             guardrail.Code `json:"guard_rail,omitempty"`
	RequiresHumanApproval bool           `json:"requires_human_approval,omitempty"`
	Success               bool           `json:"success"`
}

// Result returns the caller-facing view of s.
func (s *State) Result() Result {
	return Result{
		RunID:                 s.RunID,
		Route:                 s.Route,
		Response:              s.Response,
		GuardRail:             s.GuardRail,
		RequiresHumanApproval: s.RequiresHumanApproval,
		Success:               s.Succeeded(),
	}
}

// Bool returns a pointer to b, for Update literals.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for Update literals.
func String(s string) *string { return &s }
