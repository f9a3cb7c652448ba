package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

type stubRunner struct {
	err error
}

func (s *stubRunner) Run(_ context.Context, req workflow.Request) (*workflow.State, error) {
	if s.err != nil {
		return nil, s.err
	}
	st := workflow.NewState("run-42", req)
	route := workflow.RouteOrder
	if err := st.Apply(workflow.StepTriage, workflow.Update{Route: &route}); err != nil {
		return nil, err
	}
	if err := st.Apply(workflow.StepOrder, workflow.Update{
		Response: workflow.String("Order #101 has shipped."),
		Success:  workflow.Bool(true),
	}); err != nil {
		return nil, err
	}
	return st, nil
}

func newTestRouter(runner Runner) (*Handler, *chi.Mux) {
	h := NewHandler("http://localhost:8080", runner, 0)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return h, r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/a2a/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getTask(t *testing.T, r http.Handler, id string) TaskResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/a2a/tasks/"+id, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp TaskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestAgentCard(t *testing.T) {
	_, r := newTestRouter(&stubRunner{})
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var card AgentCard
	if err := json.NewDecoder(w.Body).Decode(&card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Name != "AutoCRM" {
		t.Fatalf("expected name AutoCRM, got %s", card.Name)
	}
	if len(card.Skills) != 1 || card.Skills[0].ID != SkillSupportRequest {
		t.Fatalf("unexpected skills: %+v", card.Skills)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	h, r := newTestRouter(&stubRunner{})

	w := post(r, `{"id":"t-1","skill":"support-request","input":{"message":"where is my order","user_id":1}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created TaskResponse
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", created.Status)
	}

	h.Wait()

	got := getTask(t, r, "t-1")
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Status, got.Error)
	}
	if got.Output["route"] != "order" || got.Output["success"] != true {
		t.Errorf("unexpected output: %+v", got.Output)
	}
	if got.Output["guard_rail"] != "NONE" {
		t.Errorf("guard_rail = %v, want NONE", got.Output["guard_rail"])
	}
}

func TestTaskFailure(t *testing.T) {
	h, r := newTestRouter(&stubRunner{err: errors.New("provider exploded")})

	if w := post(r, `{"id":"t-2","input":{"message":"hi","user_id":1}}`); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	h.Wait()

	got := getTask(t, r, "t-2")
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.Error != "internal error" {
		t.Errorf("error = %q, want internal error", got.Error)
	}
}

func TestCreateTaskRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing id", `{"input":{"message":"hi","user_id":1}}`, http.StatusBadRequest},
		{"unknown skill", `{"id":"x","skill":"code-task","input":{"message":"hi","user_id":1}}`, http.StatusBadRequest},
		{"missing message", `{"id":"x","input":{"user_id":1}}`, http.StatusBadRequest},
		{"bad user", `{"id":"x","input":{"message":"hi","user_id":0}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := newTestRouter(&stubRunner{})
			if w := post(r, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestDuplicateTask(t *testing.T) {
	h, r := newTestRouter(&stubRunner{})
	body := `{"id":"dup","input":{"message":"hi","user_id":1}}`
	if w := post(r, body); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}
	if w := post(r, body); w.Code != http.StatusConflict {
		t.Fatalf("second create: got %d, want 409", w.Code)
	}
	h.Wait()
}

func TestGetTaskNotFound(t *testing.T) {
	_, r := newTestRouter(&stubRunner{})
	req := httptest.NewRequest(http.MethodGet, "/a2a/tasks/nonexistent", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
