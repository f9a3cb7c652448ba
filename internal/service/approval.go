package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/AutoCRM/internal/adapter/otel"
	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/logger"
	"github.com/Strob0t/AutoCRM/internal/port/database"
	"github.com/Strob0t/AutoCRM/internal/port/messagequeue"
)

// DefaultDecider names the approver when none is given.
const DefaultDecider = "operator"

// Refunder applies a refund that was held for approval.
type Refunder interface {
	Complete(ctx context.Context, orderID int64, card string, amount float64) (workflow.Update, error)
}

// ApprovalService persists suspended runs and resolves them on a human decision.
type ApprovalService struct {
	store    database.ApprovalStore
	refunder Refunder
	ceiling  float64
	tracer   *Tracer
	metrics  *otel.Metrics
	alerter  *Alerter
}

// NewApprovalService creates an ApprovalService.
func NewApprovalService(store database.ApprovalStore, refunder Refunder, ceiling float64) *ApprovalService {
	if ceiling <= 0 {
		ceiling = guardrail.AutoApprovalCeiling
	}
	return &ApprovalService{store: store, refunder: refunder, ceiling: ceiling}
}

// SetTracer sets the trace event sink.
func (s *ApprovalService) SetTracer(t *Tracer) { s.tracer = t }

// SetMetrics sets the metric instruments.
func (s *ApprovalService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// SetAlerter sets where operator alerts go.
func (s *ApprovalService) SetAlerter(a *Alerter) { s.alerter = a }

// Suspend stores a pending approval for st and announces it.
func (s *ApprovalService) Suspend(ctx context.Context, st *workflow.State) error {
	a := approval.FromState(st, s.ceiling)
	if err := s.store.CreateApproval(ctx, a); err != nil {
		return fmt.Errorf("create approval %s: %w", st.RunID, err)
	}

	logger.From(ctx).Info("run suspended for approval",
		"run_id", a.RunID, "route", a.Route, "guard_rail", a.GuardRail.String())

	s.tracer.Emit(ctx, workflow.NewEvent(workflow.EventApprovalRequested, workflow.StepApproval, st))
	s.tracer.Publish(ctx, messagequeue.SubjectApprovalRequested, messagequeue.ApprovalRequestedPayload{
		RunID:     a.RunID,
		Route:     string(a.Route),
		GuardRail: string(a.GuardRail),
		UserID:    a.UserID,
		OrderID:   a.OrderID,
		Amount:    a.Amount,
		Ceiling:   a.Ceiling,
	})
	s.alerter.ApprovalRequested(ctx, a)
	return nil
}

// Get returns the approval for runID.
func (s *ApprovalService) Get(ctx context.Context, runID string) (*approval.Approval, error) {
	return s.store.GetApproval(ctx, runID)
}

// List returns approvals with the given status; empty lists all.
func (s *ApprovalService) List(ctx context.Context, status approval.Status) ([]approval.Approval, error) {
	switch status {
	case "", approval.StatusPending, approval.StatusApproved, approval.StatusDenied:
	default:
		return nil, fmt.Errorf("%w: unknown approval status %q", domain.ErrValidation, status)
	}
	return s.store.ListApprovals(ctx, status)
}

// Approve resolves runID as approved and applies any deferred side effect.
func (s *ApprovalService) Approve(ctx context.Context, runID, decider, notes string) (*approval.Approval, error) {
	return s.Resolve(ctx, approval.Decision{RunID: runID, Approved: true, Decider: decider, Notes: notes})
}

// Deny resolves runID as denied.
func (s *ApprovalService) Deny(ctx context.Context, runID, decider, notes string) (*approval.Approval, error) {
	return s.Resolve(ctx, approval.Decision{RunID: runID, Approved: false, Decider: decider, Notes: notes})
}

// Resolve claims the pending approval for d and finalizes the run. A run
// can be resolved once; later decisions get domain.ErrConflict. When the
// deferred side effect fails the claim is released and the approval is
// pending again, so the decision can be retried.
func (s *ApprovalService) Resolve(ctx context.Context, d approval.Decision) (a *approval.Approval, err error) {
	if strings.TrimSpace(d.RunID) == "" {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrValidation)
	}
	if d.Decider == "" {
		d.Decider = DefaultDecider
	}

	ctx, span := otel.StartApprovalSpan(ctx, d.RunID, d.Approved)
	defer func() { otel.EndSpan(span, err) }()

	a, err = s.store.ResolveApproval(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("resolve approval %s: %w", d.RunID, err)
	}

	outcome, err := s.finalize(ctx, a, d)
	if err != nil {
		if rerr := s.store.ReopenApproval(context.WithoutCancel(ctx), a.RunID); rerr != nil {
			logger.From(ctx).Error("approval left claimed after failed finalize",
				"run_id", a.RunID, "error", rerr)
		}
		return nil, fmt.Errorf("finalize %s: %w", d.RunID, err)
	}
	if err := s.store.RecordOutcome(ctx, a.RunID, outcome); err != nil {
		return nil, fmt.Errorf("record outcome %s: %w", d.RunID, err)
	}
	a.Outcome = outcome

	logger.From(ctx).Info("approval resolved",
		"run_id", a.RunID, "status", a.Status, "decider", a.Decider, "success", outcome.Succeeded())

	if s.metrics != nil {
		s.metrics.ApprovalsResolved.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(a.Status))))
	}
	s.tracer.Emit(ctx, workflow.NewEvent(workflow.EventApprovalResolved, workflow.StepApproval, outcome))
	s.tracer.Publish(ctx, messagequeue.SubjectApprovalResolved, messagequeue.ApprovalResolvedPayload{
		RunID:    a.RunID,
		Status:   string(a.Status),
		Decider:  a.Decider,
		Success:  outcome.Succeeded(),
		Response: outcome.Response,
	})
	s.alerter.ApprovalResolved(ctx, a)
	return a, nil
}

// finalize builds the final state of a resolved run from its snapshot.
func (s *ApprovalService) finalize(ctx context.Context, a *approval.Approval, d approval.Decision) (*workflow.State, error) {
	out := copyState(a.State, a.RunID)
	out.RequiresHumanApproval = false
	out.Steps = append(out.Steps, workflow.StepApproval)
	out.Data["decision"] = string(d.Status())
	out.Data["decider"] = d.Decider

	if !d.Approved {
		out.Success = workflow.Bool(false)
		out.Response = fmt.Sprintf("Your request was reviewed by %s and could not be approved.", d.Decider)
		if d.Notes != "" {
			out.Response += " " + d.Notes
		}
		return out, nil
	}

	if a.GuardRail == guardrail.RequiresApproval && a.OrderID != nil && a.Amount != nil && s.refunder != nil {
		card := ""
		if a.State != nil && a.State.CardLast4 != nil {
			card = *a.State.CardLast4
		}
		u, err := s.refunder.Complete(ctx, *a.OrderID, card, *a.Amount)
		if err != nil {
			return nil, err
		}
		out.Success = u.Success
		if u.Response != nil {
			out.Response = *u.Response
		}
		for k, v := range u.Data {
			out.Data[k] = v
		}
		return out, nil
	}

	out.Success = workflow.Bool(true)
	out.Response = fmt.Sprintf("Your request was approved by %s.", d.Decider)
	if d.Notes != "" {
		out.Response += " " + d.Notes
	}
	return out, nil
}

func copyState(s *workflow.State, runID string) *workflow.State {
	if s == nil {
		return &workflow.State{RunID: runID, Data: map[string]any{}}
	}
	out := *s
	out.Steps = append([]workflow.Step(nil), s.Steps...)
	out.Data = make(map[string]any, len(s.Data)+2)
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return &out
}

// HandleDecision is the queue handler for approval decisions from external
// approvers. Decisions for unknown or already resolved runs are dropped.
func (s *ApprovalService) HandleDecision(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.ApprovalDecisionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode approval decision: %w", err)
	}
	_, err := s.Resolve(ctx, approval.Decision{RunID: p.RunID, Approved: p.Approved, Decider: p.Decider, Notes: p.Notes})
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrValidation) {
		logger.From(ctx).Warn("approval decision dropped", "run_id", p.RunID, "error", err)
		return nil
	}
	return err
}

// SubscribeDecisions consumes approval decisions from q.
func (s *ApprovalService) SubscribeDecisions(ctx context.Context, q messagequeue.Queue) (func(), error) {
	return q.Subscribe(ctx, messagequeue.SubjectApprovalDecision, s.HandleDecision)
}
