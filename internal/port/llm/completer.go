// Package llm defines the text-generation and classification port.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Completer produces free-form completions. Callers validate and normalize
// whatever text comes back; implementations must report failures as errors
// and never return empty text with a nil error.
type Completer interface {
	// Classify sends prompt as the system message and message as the user turn.
	Classify(ctx context.Context, prompt, message string) (string, error)
	// Generate sends systemPrompt and userMessage, followed by each extra
	// entry as an additional system message.
	Generate(ctx context.Context, systemPrompt, userMessage string, extra ...string) (string, error)
}

// Role names a chat message author.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one entry of a chat completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BuildMessages lays out the message list every provider sends for Generate.
func BuildMessages(systemPrompt, userMessage string, extra ...string) []Message {
	msgs := make([]Message, 0, 2+len(extra))
	msgs = append(msgs,
		Message{Role: RoleSystem, Content: systemPrompt},
		Message{Role: RoleUser, Content: userMessage},
	)
	for _, e := range extra {
		msgs = append(msgs, Message{Role: RoleSystem, Content: e})
	}
	return msgs
}

// CheckCompletion trims text and turns an empty result into ErrEmptyCompletion.
func CheckCompletion(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
