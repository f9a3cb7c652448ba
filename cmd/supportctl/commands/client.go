package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls the AutoCRM HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ChatRequest mirrors the intake body of POST /api/v1/chat.
type ChatRequest struct {
	UserMessage string   `json:"userMessage"`
	UserID      int64    `json:"userId"`
	OrderID     *int64   `json:"orderId,omitempty"`
	CardLast4   *string  `json:"cardLast4,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

// ChatResult is the data part of a chat response.
type ChatResult struct {
	RunID                 string `json:"runId"`
	Route                 string `json:"route"`
	Response              string `json:"response"`
	GuardRail             string `json:"guardRail,omitempty"`
	RequiresHumanApproval bool   `json:"requiresHumanApproval"`
	AgentSuccess          bool   `json:"agentSuccess"`
}

// RunResult is returned by scenario runs.
type RunResult struct {
	RunID                 string `json:"run_id"`
	Route                 string `json:"route"`
	Response              string `json:"response"`
	GuardRail             string `json:"guard_rail,omitempty"`
	RequiresHumanApproval bool   `json:"requires_human_approval,omitempty"`
	Success               bool   `json:"success"`
}

// Scenario is one demo scenario.
type Scenario struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Approval is a suspended run as reported by the service.
type Approval struct {
	RunID     string     `json:"run_id"`
	Route     string     `json:"route"`
	GuardRail string     `json:"guard_rail"`
	UserID    int64      `json:"user_id"`
	OrderID   *int64     `json:"order_id,omitempty"`
	Amount    *float64   `json:"amount,omitempty"`
	Status    string     `json:"status"`
	Decider   string     `json:"decider,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Outcome   *RunResult `json:"outcome,omitempty"`
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type chatEnvelope struct {
	Success bool       `json:"success"`
	Data    ChatResult `json:"data"`
}

// Chat submits a customer message.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	var env chatEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat", nil, req, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Scenarios lists the demo scenarios.
func (c *Client) Scenarios(ctx context.Context) ([]Scenario, error) {
	var out []Scenario
	err := c.do(ctx, http.MethodGet, "/api/v1/scenarios", nil, nil, &out)
	return out, err
}

// RunScenario runs the named demo scenario.
func (c *Client) RunScenario(ctx context.Context, name string) (*RunResult, error) {
	var out RunResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/scenarios/"+url.PathEscape(name)+"/run", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approvals lists suspended runs, optionally filtered by status.
func (c *Client) Approvals(ctx context.Context, status string) ([]Approval, error) {
	path := "/api/v1/approvals"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []Approval
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

// Approval fetches one suspended run.
func (c *Client) Approval(ctx context.Context, runID string) (*Approval, error) {
	var out Approval
	if err := c.do(ctx, http.MethodGet, "/api/v1/approvals/"+url.PathEscape(runID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Decide approves or denies a suspended run.
func (c *Client) Decide(ctx context.Context, runID string, approve bool, approver, key, notes string) (*Approval, error) {
	action := "deny"
	if approve {
		action = "approve"
	}
	headers := map[string]string{}
	if approver != "" {
		headers["X-Approver"] = approver
	}
	if key != "" {
		headers["X-Approver-Key"] = key
	}
	var out Approval
	path := "/api/v1/approvals/" + url.PathEscape(runID) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, headers, map[string]string{"notes": notes}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset restores the demo fixtures.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/reset", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
