package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub()
	hub.Broadcast(context.Background(), Message{Type: "test", Payload: []byte(`{"key":"value"}`)})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub()
	// A channel cannot be marshaled to JSON; should log, not panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.remove(&conn{cancel: cancel})
}

func dial(t *testing.T, srv *httptest.Server, hub *Hub, query string, want int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })

	deadline := time.Now().Add(5 * time.Second)
	for hub.ConnectionCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d connections, want %d", hub.ConnectionCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return c
}

func readMessage(t *testing.T, c *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestHubDeliversWorkflowEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()
	defer hub.Close()

	all := dial(t, srv, hub, "", 1)
	scoped := dial(t, srv, hub, "?run_id=run-b", 2)

	st := workflow.NewState("run-a", workflow.Request{Message: "hi", UserID: 1})
	hub.BroadcastEvent(context.Background(), string(workflow.EventRunStarted), workflow.NewEvent(workflow.EventRunStarted, "", st))

	st = workflow.NewState("run-b", workflow.Request{Message: "hi", UserID: 1})
	hub.BroadcastEvent(context.Background(), string(workflow.EventRunStarted), workflow.NewEvent(workflow.EventRunStarted, "", st))

	first := readMessage(t, all)
	second := readMessage(t, all)
	if first.RunID != "run-a" || second.RunID != "run-b" {
		t.Fatalf("unscoped client got %q then %q", first.RunID, second.RunID)
	}

	got := readMessage(t, scoped)
	if got.RunID != "run-b" || got.Type != "run.started" {
		t.Fatalf("scoped client got %+v, want run-b run.started", got)
	}
}
