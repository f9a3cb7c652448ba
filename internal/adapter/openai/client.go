// Package openai implements llm.Completer with the go-openai SDK. Transient
// failures are retried with jittered exponential backoff; every attempt
// runs through the shared circuit breaker.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Strob0t/AutoCRM/internal/port/llm"
	"github.com/Strob0t/AutoCRM/internal/resilience"
)

// Config holds the client settings.
type Config struct {
	APIKey     string
	BaseURL    string // empty uses the public OpenAI endpoint
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client wraps the go-openai client with retries.
type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
	breaker     *resilience.Breaker
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai: API key is required")
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		client:      goopenai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: math.SmallestNonzeroFloat32,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

// SetBreaker attaches a circuit breaker to every completion attempt.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// WithTemperature returns a copy of c that samples at t.
func (c *Client) WithTemperature(t float64) *Client {
	cp := *c
	// go-openai omits a zero temperature, which the API reads as 1.
	cp.temperature = float32(t)
	if cp.temperature == 0 {
		cp.temperature = math.SmallestNonzeroFloat32
	}
	return &cp
}

// Classify sends prompt as the system message and message as the user turn.
func (c *Client) Classify(ctx context.Context, prompt, message string) (string, error) {
	text, err := c.complete(ctx, llm.BuildMessages(prompt, message))
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return text, nil
}

// Generate sends the system prompt, the user message and any extra system messages.
func (c *Client) Generate(ctx context.Context, systemPrompt, userMessage string, extra ...string) (string, error) {
	text, err := c.complete(ctx, llm.BuildMessages(systemPrompt, userMessage, extra...))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, msgs []llm.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(msgs)),
		Temperature: c.temperature,
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: chatRole(m.Role), Content: m.Content})
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := resilience.Sleep(ctx, resilience.Backoff(c.retryDelay, attempt)); err != nil {
				return "", err
			}
		}

		text, err := c.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		slog.Warn("openai completion failed, retrying", "attempt", attempt+1, "error", err)
	}
	return "", lastErr
}

func (c *Client) attempt(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	var text string
	call := func() error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if isClientError(err) {
				return resilience.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return llm.ErrEmptyCompletion
		}
		text, err = llm.CheckCompletion(resp.Choices[0].Message.Content)
		return err
	}
	if c.breaker != nil {
		return text, c.breaker.Execute(call)
	}
	return text, call()
}

func chatRole(r llm.Role) string {
	if r == llm.RoleUser {
		return goopenai.ChatMessageRoleUser
	}
	return goopenai.ChatMessageRoleSystem
}

// isClientError reports a 4xx response other than 429.
func isClientError(err error) bool {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func retryable(err error) bool {
	return !resilience.IsPermanent(err) &&
		!errors.Is(err, resilience.ErrCircuitOpen) &&
		!errors.Is(err, llm.ErrEmptyCompletion) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
