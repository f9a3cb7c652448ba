package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Strob0t/AutoCRM/internal/port/notifier"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifier.Notification
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, n notifier.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) notifications() []notifier.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifier.Notification(nil), r.sent...)
}

func TestAlerter_ApprovalLifecycle(t *testing.T) {
	te := newTestEngine(t, &scriptedCompleter{classify: classifyAs("refund")})
	rec := &recordingNotifier{}
	alerter := NewAlerter("http://crm.local", rec)
	te.approvals.SetAlerter(alerter)

	runID := suspendManager(t, te)
	alerter.Wait()

	sent := rec.notifications()
	if len(sent) != 1 {
		t.Fatalf("alerts after suspend = %d, want 1", len(sent))
	}
	req := sent[0]
	if req.Level != notifier.LevelWarning || req.RunID != runID {
		t.Errorf("request alert = %+v", req)
	}
	if !strings.Contains(req.Message, "$599.99") || !strings.Contains(req.Message, "order #103") {
		t.Errorf("request message = %q", req.Message)
	}
	if req.Link != "http://crm.local/api/v1/approvals/"+runID {
		t.Errorf("link = %q", req.Link)
	}

	if _, err := te.approvals.Deny(context.Background(), runID, "maria", "fraud check"); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	alerter.Wait()

	sent = rec.notifications()
	if len(sent) != 2 {
		t.Fatalf("alerts after deny = %d, want 2", len(sent))
	}
	res := sent[1]
	if res.Level != notifier.LevelError || res.Title != "Request denied" {
		t.Errorf("resolution alert = %+v", res)
	}
	if !strings.Contains(res.Message, "maria denied") || !strings.Contains(res.Message, "fraud check") {
		t.Errorf("resolution message = %q", res.Message)
	}
}

func TestAlerter_FailuresDoNotAffectRun(t *testing.T) {
	te := newTestEngine(t, &scriptedCompleter{classify: classifyAs("refund")})
	rec := &recordingNotifier{err: errors.New("webhook down")}
	alerter := NewAlerter("", rec)
	te.approvals.SetAlerter(alerter)

	runID := suspendManager(t, te)
	if _, err := te.approvals.Approve(context.Background(), runID, "maria", ""); err != nil {
		t.Fatalf("Approve with failing notifier: %v", err)
	}
	alerter.Wait()

	sent := rec.notifications()
	if len(sent) != 2 {
		t.Fatalf("attempts = %d, want 2", len(sent))
	}
	if sent[0].Link != "" {
		t.Errorf("link without base URL = %q", sent[0].Link)
	}
}

func TestAlerter_NilIsNoop(t *testing.T) {
	var a *Alerter
	a.ApprovalRequested(context.Background(), nil)
	a.ApprovalResolved(context.Background(), nil)
	a.Wait()
}
