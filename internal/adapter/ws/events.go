package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

// BroadcastEvent marshals a typed event and broadcasts it. Workflow events
// and approvals are tagged with their run id so per-run subscribers get them.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		RunID:   runIDOf(payload),
		Payload: json.RawMessage(data),
	})
}

func runIDOf(payload any) string {
	switch p := payload.(type) {
	case workflow.Event:
		return p.RunID
	case *workflow.Event:
		return p.RunID
	case *approval.Approval:
		return p.RunID
	}
	return ""
}
