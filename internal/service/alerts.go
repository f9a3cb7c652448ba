package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/logger"
	"github.com/Strob0t/AutoCRM/internal/port/notifier"
)

const alertTimeout = 10 * time.Second

// Alerter tells operators about runs waiting for them. Delivery happens in
// the background; failures are logged and never affect the run.
type Alerter struct {
	notifiers []notifier.Notifier
	baseURL   string
	wg        sync.WaitGroup
}

// NewAlerter creates an Alerter. baseURL is used to link alerts to the
// approval record; empty omits the link.
func NewAlerter(baseURL string, notifiers ...notifier.Notifier) *Alerter {
	return &Alerter{notifiers: notifiers, baseURL: baseURL}
}

// Wait blocks until in-flight deliveries finish.
func (a *Alerter) Wait() {
	if a != nil {
		a.wg.Wait()
	}
}

// ApprovalRequested announces a newly suspended run.
func (a *Alerter) ApprovalRequested(ctx context.Context, ap *approval.Approval) {
	if a == nil || len(a.notifiers) == 0 {
		return
	}
	var msg string
	switch ap.GuardRail {
	case guardrail.RequiresApproval:
		msg = fmt.Sprintf("User #%d asked for a refund above the auto-approval ceiling", ap.UserID)
		if ap.OrderID != nil && ap.Amount != nil {
			msg = fmt.Sprintf("User #%d asked for a refund of $%.2f on order #%d (ceiling $%.2f)",
				ap.UserID, *ap.Amount, *ap.OrderID, ap.Ceiling)
		}
	default:
		msg = fmt.Sprintf("Security request from user #%d flagged %s", ap.UserID, ap.GuardRail)
	}
	a.send(ctx, notifier.Notification{
		Title:   "Approval required",
		Message: msg,
		Level:   notifier.LevelWarning,
		RunID:   ap.RunID,
		Link:    a.link(ap.RunID),
	})
}

// ApprovalResolved reports the decision on a suspended run.
func (a *Alerter) ApprovalResolved(ctx context.Context, ap *approval.Approval) {
	if a == nil || len(a.notifiers) == 0 {
		return
	}
	level, verb := notifier.LevelError, "denied"
	if ap.Status == approval.StatusApproved {
		level, verb = notifier.LevelSuccess, "approved"
	}
	msg := fmt.Sprintf("%s %s the %s request from user #%d", ap.Decider, verb, ap.Route, ap.UserID)
	if ap.Notes != "" {
		msg += ": " + ap.Notes
	}
	a.send(ctx, notifier.Notification{
		Title:   "Request " + verb,
		Message: msg,
		Level:   level,
		RunID:   ap.RunID,
		Link:    a.link(ap.RunID),
	})
}

func (a *Alerter) link(runID string) string {
	if a.baseURL == "" {
		return ""
	}
	return a.baseURL + "/api/v1/approvals/" + runID
}

func (a *Alerter) send(ctx context.Context, n notifier.Notification) {
	log := logger.From(ctx)
	ctx = context.WithoutCancel(ctx)
	for _, dst := range a.notifiers {
		a.wg.Add(1)
		go func(dst notifier.Notifier) {
			defer a.wg.Done()
			sctx, cancel := context.WithTimeout(ctx, alertTimeout)
			defer cancel()
			if err := dst.Send(sctx, n); err != nil {
				log.Warn("operator alert failed", "notifier", dst.Name(), "run_id", n.RunID, "error", err)
				return
			}
			log.Debug("operator alert sent", "notifier", dst.Name(), "run_id", n.RunID)
		}(dst)
	}
}
