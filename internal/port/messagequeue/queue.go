// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain processes pending messages and then closes the connection.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects published and consumed by the support service. The stream
// captures everything under SubjectRoot.
const (
	SubjectRoot = "support.>"

	SubjectRunEvents = "support.runs.events" // support.runs.events.{event type}

	SubjectApprovalRequested = "support.approvals.requested"
	SubjectApprovalDecision  = "support.approvals.decision" // external approvers → service
	SubjectApprovalResolved  = "support.approvals.resolved"
)

// RunEventSubject returns the subject a trace event of the given type is published on.
func RunEventSubject(eventType string) string {
	return SubjectRunEvents + "." + eventType
}
