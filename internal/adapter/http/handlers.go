package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/middleware"
	"github.com/Strob0t/AutoCRM/internal/port/messagequeue"
	"github.com/Strob0t/AutoCRM/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Engine     *service.Engine
	Approvals  *service.ApprovalService
	Seed       *service.SeedService
	Queue      messagequeue.Queue // optional
	RunTimeout time.Duration
}

// chatRequest is the body of POST /api/v1/chat.
type chatRequest struct {
	UserMessage string   `json:"userMessage"`
	UserID      int64    `json:"userId"`
	OrderID     *int64   `json:"orderId,omitempty"`
	CardLast4   *string  `json:"cardLast4,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

type chatData struct {
	RunID                 string         `json:"runId"`
	Route                 workflow.Route `json:"route"`
	Response              string         `json:"response"`
	GuardRail             guardrail.Code `json:"guardRail,omitempty"`
	RequiresHumanApproval bool           `json:"requiresHumanApproval"`
	AgentSuccess          bool           `json:"agentSuccess"`
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type decisionRequest struct {
	Decider string `json:"decider"`
	Notes   string `json:"notes"`
}

func (h *Handlers) run(ctx context.Context, req workflow.Request) (*workflow.State, error) {
	if h.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.RunTimeout)
		defer cancel()
	}
	return h.Engine.Run(ctx, req)
}

// Chat handles POST /api/v1/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[chatRequest](w, r)
	if !ok {
		return
	}
	if req.UserMessage == "" || req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: userMessage, userId")
		return
	}

	st, err := h.run(r.Context(), workflow.Request{
		Message:   req.UserMessage,
		UserID:    req.UserID,
		OrderID:   req.OrderID,
		CardLast4: req.CardLast4,
		Amount:    req.Amount,
	})
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: chatData{
		RunID:                 st.RunID,
		Route:                 st.Route,
		Response:              st.Response,
		GuardRail:             st.GuardRail,
		RequiresHumanApproval: st.RequiresHumanApproval,
		AgentSuccess:          st.Succeeded(),
	}})
}

// StartRun handles POST /api/v1/runs
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[workflow.Request](w, r)
	if !ok {
		return
	}
	st, err := h.run(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, st.Result())
}

// ListScenarios handles GET /api/v1/scenarios
func (h *Handlers) ListScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, service.DemoScenarios())
}

// RunScenario handles POST /api/v1/scenarios/{name}/run
func (h *Handlers) RunScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := service.FindScenario(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}
	st, err := h.run(r.Context(), sc.Request)
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, st.Result())
}

// Reset handles POST /api/v1/reset
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Seed.Reset(r.Context()); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Database reset to initial state"})
}

// ListApprovals handles GET /api/v1/approvals?status=pending
func (h *Handlers) ListApprovals(w http.ResponseWriter, r *http.Request) {
	list, err := h.Approvals.List(r.Context(), approval.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	if list == nil {
		list = []approval.Approval{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetApproval handles GET /api/v1/approvals/{runID}
func (h *Handlers) GetApproval(w http.ResponseWriter, r *http.Request) {
	a, err := h.Approvals.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeDomainError(w, err, "approval not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ApproveRun handles POST /api/v1/approvals/{runID}/approve
func (h *Handlers) ApproveRun(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// DenyRun handles POST /api/v1/approvals/{runID}/deny
func (h *Handlers) DenyRun(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handlers) decide(w http.ResponseWriter, r *http.Request, approved bool) {
	body, ok := readOptionalJSON[decisionRequest](w, r)
	if !ok {
		return
	}
	decider := strings.TrimSpace(body.Decider)
	if decider == "" {
		decider = middleware.Approver(r.Context())
	}
	a, err := h.Approvals.Resolve(r.Context(), approval.Decision{
		RunID:    chi.URLParam(r, "runID"),
		Approved: approved,
		Decider:  decider,
		Notes:    body.Notes,
	})
	if err != nil {
		writeDomainError(w, err, "approval not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	nats := "disabled"
	if h.Queue != nil {
		nats = "disconnected"
		if h.Queue.IsConnected() {
			nats = "connected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "nats": nats})
}
