// Package a2a serves the agent-to-agent protocol surface: an agent card
// and task endpoints that run support requests through the workflow.
package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/logger"
)

// Runner executes a support request through the workflow.
type Runner interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.State, error)
}

// Handler serves the A2A protocol endpoints. Tasks are kept in memory for
// the life of the process.
type Handler struct {
	baseURL string
	runner  Runner
	timeout time.Duration

	mu    sync.RWMutex
	tasks map[string]*TaskResponse
	wg    sync.WaitGroup
}

// NewHandler creates an A2A handler. A zero timeout means one minute.
func NewHandler(baseURL string, runner Runner, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Handler{
		baseURL: baseURL,
		runner:  runner,
		timeout: timeout,
		tasks:   make(map[string]*TaskResponse),
	}
}

// MountRoutes registers A2A routes on the given chi router.
// These are mounted at the root level, not under /api/v1.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/.well-known/agent.json", h.handleAgentCard)
	r.Post("/a2a/tasks", h.handleCreateTask)
	r.Get("/a2a/tasks/{id}", h.handleGetTask)
}

// Wait blocks until every started task has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BuildAgentCard(h.baseURL))
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}
	if req.Skill != "" && req.Skill != SkillSupportRequest {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown skill " + req.Skill})
		return
	}
	wreq := workflow.Request{
		Message:   req.Input.Message,
		UserID:    req.Input.UserID,
		OrderID:   req.Input.OrderID,
		CardLast4: req.Input.CardLast4,
		Amount:    req.Input.Amount,
	}
	if err := wreq.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.mu.Lock()
	if _, exists := h.tasks[req.ID]; exists {
		h.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task already exists"})
		return
	}
	task := &TaskResponse{ID: req.ID, Status: StatusQueued}
	h.tasks[req.ID] = task
	resp := *task
	h.mu.Unlock()

	log := logger.From(r.Context())
	log.Info("a2a task created", "id", req.ID, "user_id", wreq.UserID)

	// The run outlives the request; keep request-scoped values but drop its cancellation.
	ctx := context.WithoutCancel(r.Context())
	h.wg.Add(1)
	go h.run(ctx, req.ID, wreq)

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) run(ctx context.Context, id string, req workflow.Request) {
	defer h.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.update(id, func(t *TaskResponse) { t.Status = StatusRunning })

	st, err := h.runner.Run(ctx, req)
	if err != nil {
		logger.From(ctx).Warn("a2a task failed", "id", id, "error", err)
		msg := "internal error"
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, context.DeadlineExceeded) {
			msg = err.Error()
		}
		h.update(id, func(t *TaskResponse) {
			t.Status = StatusFailed
			t.Error = msg
		})
		return
	}

	res := st.Result()
	h.update(id, func(t *TaskResponse) {
		t.Status = StatusCompleted
		t.Output = map[string]any{
			"run_id":                  res.RunID,
			"route":                   string(res.Route),
			"response":                res.Response,
			"guard_rail":              res.GuardRail.String(),
			"requires_human_approval": res.RequiresHumanApproval,
			"success":                 res.Success,
		}
	})
}

func (h *Handler) update(id string, fn func(*TaskResponse)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.tasks[id]; ok {
		fn(t)
	}
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.RLock()
	task, ok := h.tasks[id]
	var resp TaskResponse
	if ok {
		resp = *task
	}
	h.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
