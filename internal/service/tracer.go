package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/logger"
	"github.com/Strob0t/AutoCRM/internal/port/broadcast"
	"github.com/Strob0t/AutoCRM/internal/port/messagequeue"
)

// Tracer fans trace events out to connected operators and the message queue.
// Either sink may be nil. Delivery failures are logged, never returned.
type Tracer struct {
	hub   broadcast.Broadcaster
	queue messagequeue.Queue
}

// NewTracer creates a Tracer.
func NewTracer(hub broadcast.Broadcaster, queue messagequeue.Queue) *Tracer {
	return &Tracer{hub: hub, queue: queue}
}

// Emit delivers ev. A nil Tracer discards it.
func (t *Tracer) Emit(ctx context.Context, ev workflow.Event) {
	if t == nil {
		return
	}
	if ev.RequestID == "" {
		ev.RequestID = logger.RequestID(ctx)
	}
	if t.hub != nil {
		t.hub.BroadcastEvent(ctx, string(ev.Type), ev)
	}
	if t.queue != nil {
		t.publish(ctx, messagequeue.RunEventSubject(string(ev.Type)), messagequeue.RunEventPayload{
			Type:                  string(ev.Type),
			RunID:                 ev.RunID,
			Step:                  string(ev.Step),
			Route:                 string(ev.Route),
			GuardRail:             string(ev.GuardRail),
			Success:               ev.Success,
			RequiresHumanApproval: ev.RequiresHumanApproval,
			Response:              ev.Response,
			Error:                 ev.Error,
			RequestID:             ev.RequestID,
		})
	}
}

// Publish sends payload on subject if a queue is configured.
func (t *Tracer) Publish(ctx context.Context, subject string, payload any) {
	if t == nil || t.queue == nil {
		return
	}
	t.publish(ctx, subject, payload)
}

func (t *Tracer) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := t.queue.Publish(ctx, subject, data); err != nil {
		logger.From(ctx).Warn("publish trace event", "subject", subject, "error", err)
	}
}
