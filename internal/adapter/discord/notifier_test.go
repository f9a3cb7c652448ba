package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/AutoCRM/internal/port/notifier"
)

// Compile-time interface check.
var _ notifier.Notifier = (*Notifier)(nil)

func TestRegistered(t *testing.T) {
	n, err := notifier.New("discord", "https://discord.example/hook")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.Name() != "discord" {
		t.Fatalf("expected 'discord', got %q", n.Name())
	}
}

func TestSendNotConfigured(t *testing.T) {
	if err := NewNotifier("").Send(context.Background(), notifier.Notification{}); err != notifier.ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendEmbed(t *testing.T) {
	var got discordWebhook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Send(context.Background(), notifier.Notification{
		Title:   "Refund approved",
		Message: "Order #103 refunded",
		Level:   notifier.LevelSuccess,
		RunID:   "run-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Color != 0x2ECC71 || e.Footer == nil || e.Footer.Text != "Run run-9" {
		t.Errorf("embed = %+v", e)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := NewNotifier(srv.URL).Send(context.Background(), notifier.Notification{Title: "x"}); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
