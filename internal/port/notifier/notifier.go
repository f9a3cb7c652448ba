// Package notifier defines the operator alert port. Alerts tell a human
// that a run is waiting for their decision, and how it was resolved.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier has no destination.
var ErrNotConfigured = errors.New("notifier: not configured")

// Level is the severity shown next to an alert.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   Level  `json:"level"`
	RunID   string `json:"run_id,omitempty"`
	// Link points the operator at the approval record, when known.
	Link string `json:"link,omitempty"`
}

// Notifier delivers alerts to one destination.
type Notifier interface {
	// Name identifies the destination in logs ("slack", "discord").
	Name() string
	Send(ctx context.Context, n Notification) error
}
