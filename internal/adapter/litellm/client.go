// Package litellm implements llm.Completer against a LiteLLM proxy, or any
// server speaking the OpenAI-compatible /chat/completions API.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Strob0t/AutoCRM/internal/port/llm"
	"github.com/Strob0t/AutoCRM/internal/resilience"
)

// Model represents a configured model in LiteLLM.
type Model struct {
	ModelName string         `json:"model_name"`
	Provider  string         `json:"litellm_provider,omitempty"`
	ModelInfo map[string]any `json:"model_info,omitempty"`
}

// Client talks to the LiteLLM proxy.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	breaker     *resilience.Breaker
}

// NewClient creates a client for model at baseURL. timeout bounds each HTTP call.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// WithTemperature returns a copy of c that samples at t. The copy shares
// the HTTP client and breaker.
func (c *Client) WithTemperature(t float64) *Client {
	cp := *c
	cp.temperature = t
	return &cp
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
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
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs, Temperature: c.temperature})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	return llm.CheckCompletion(out.Choices[0].Message.Content)
}

// ListModels returns all configured models from LiteLLM.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/model/info", nil)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	var result struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal models: %w", err)
	}
	return result.Data, nil
}

// HasModel reports whether the proxy serves the configured model.
func (c *Client) HasModel(ctx context.Context) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.ModelName == c.model {
			return true, nil
		}
	}
	return false, nil
}

// Health checks if LiteLLM is healthy.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/health/liveliness", nil)
	return err == nil, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			apiErr := fmt.Errorf("litellm API error %d: %s", resp.StatusCode, string(data))
			// A rejected request says nothing about proxy health.
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return resilience.Permanent(apiErr)
			}
			return apiErr
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
