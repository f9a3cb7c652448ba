package service

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/port/llm"
)

const triagePrompt = `You are a triage agent that routes customer support requests to specialist agents.

Analyze the user's message and determine which specialist should handle it:
- "order" - for order status inquiries, tracking, order details, "show my orders"
- "security" - for address changes, card updates, order cancellations, PII requests
- "refund" - for refund requests

Respond with ONLY ONE WORD: either "order", "security", or "refund". Nothing else.`

// Classifier maps a customer message to one of the specialist routes.
type Classifier struct {
	llm llm.Completer
}

// NewClassifier creates a Classifier backed by the given completer.
func NewClassifier(c llm.Completer) *Classifier {
	return &Classifier{llm: c}
}

// Classify returns the route for message. An out-of-set label falls back to
// the order route; a completer failure is returned as an error.
func (c *Classifier) Classify(ctx context.Context, message string) (workflow.Route, error) {
	raw, err := c.llm.Classify(ctx, triagePrompt, message)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	route, ok := workflow.ParseRoute(raw)
	if !ok {
		slog.Warn("classifier returned unknown route, defaulting to order", "raw", truncate(raw, 64))
		return workflow.RouteOrder, nil
	}
	return route, nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
