package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeAPI struct {
	lastPath    string
	lastBody    map[string]any
	lastHeaders http.Header
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastPath = r.Method + " " + r.URL.RequestURI()
		f.lastHeaders = r.Header.Clone()
		f.lastBody = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &f.lastBody)
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/api/v1/chat":
			_, _ = w.Write([]byte(`{"success":true,"data":{"runId":"r1","route":"refund","response":"Refund is pending approval.","guardRail":"REQUIRES_APPROVAL","requiresHumanApproval":true,"agentSuccess":false}}`))
		case r.URL.Path == "/api/v1/scenarios":
			_, _ = w.Write([]byte(`[{"name":"detective","title":"The Detective","description":"order lookup"}]`))
		case r.URL.Path == "/api/v1/scenarios/manager/run":
			_, _ = w.Write([]byte(`{"run_id":"r2","route":"refund","response":"ok","success":true}`))
		case r.URL.Path == "/api/v1/approvals":
			_, _ = w.Write([]byte(`[{"run_id":"r1","route":"refund","guard_rail":"REQUIRES_APPROVAL","user_id":3,"amount":599.99,"status":"pending"}]`))
		case r.URL.Path == "/api/v1/approvals/r1/approve":
			_, _ = w.Write([]byte(`{"run_id":"r1","route":"refund","status":"approved","decider":"dana","outcome":{"run_id":"r1","response":"Refund done.","success":true}}`))
		case r.URL.Path == "/api/v1/approvals/r1/deny":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"success":false,"error":"already resolved"}`))
		case r.URL.Path == "/api/v1/reset":
			_, _ = w.Write([]byte(`{"success":true,"message":"Database reset to initial state"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"not found"}`))
		}
	})
}

func execute(t *testing.T, srvURL string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", srvURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func newFakeServer(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	return api, srv
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "supportctl" {
		t.Errorf("Use = %q, want supportctl", cmd.Use)
	}
	for _, name := range []string{"run", "scenario", "approvals", "approve", "deny", "reset"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"server", "format", "approver", "approver-key", "timeout"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("--%s flag not found", flag)
		}
	}
}

func TestRunCommand(t *testing.T) {
	api, srv := newFakeServer(t)

	out, err := execute(t, srv.URL, "run", "--user", "3", "--order", "103", "--card", "7890", "--amount", "599.99", "Refund", "my", "laptop")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if api.lastPath != "POST /api/v1/chat" {
		t.Errorf("path = %q", api.lastPath)
	}
	if api.lastBody["userMessage"] != "Refund my laptop" || api.lastBody["orderId"] != float64(103) {
		t.Errorf("body = %v", api.lastBody)
	}

	// Output is not a terminal, so auto means JSON.
	var res ChatResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if !res.RequiresHumanApproval || res.RunID != "r1" {
		t.Errorf("result = %+v", res)
	}
}

func TestRunCommandOmitsUnsetRefundFields(t *testing.T) {
	api, srv := newFakeServer(t)
	if _, err := execute(t, srv.URL, "run", "--user", "1", "where is my order"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := api.lastBody["orderId"]; ok {
		t.Error("orderId sent without --order")
	}
}

func TestRunCommandRequiresUser(t *testing.T) {
	_, srv := newFakeServer(t)
	if _, err := execute(t, srv.URL, "run", "hello"); err == nil {
		t.Fatal("expected error without --user")
	}
}

func TestScenarioCommands(t *testing.T) {
	_, srv := newFakeServer(t)

	out, err := execute(t, srv.URL, "--format", "text", "scenario")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "detective") || !strings.Contains(out, "NAME") {
		t.Errorf("list output = %q", out)
	}

	out, err = execute(t, srv.URL, "--format", "text", "scenario", "manager")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Run:        r2") || !strings.Contains(out, "Guard rail: NONE") {
		t.Errorf("run output = %q", out)
	}
}

func TestApprovalsCommand(t *testing.T) {
	api, srv := newFakeServer(t)

	out, err := execute(t, srv.URL, "--format", "text", "approvals")
	if err != nil {
		t.Fatalf("approvals: %v", err)
	}
	if api.lastPath != "GET /api/v1/approvals?status=pending" {
		t.Errorf("path = %q", api.lastPath)
	}
	if !strings.Contains(out, "$599.99") {
		t.Errorf("output = %q", out)
	}
}

func TestApproveSendsHeaders(t *testing.T) {
	api, srv := newFakeServer(t)

	out, err := execute(t, srv.URL, "--format", "text", "--approver", "dana", "--approver-key", "k3y", "approve", "r1", "--notes", "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if api.lastHeaders.Get("X-Approver") != "dana" || api.lastHeaders.Get("X-Approver-Key") != "k3y" {
		t.Errorf("headers = %v", api.lastHeaders)
	}
	if api.lastBody["notes"] != "ok" {
		t.Errorf("body = %v", api.lastBody)
	}
	if !strings.Contains(out, "Refund done.") {
		t.Errorf("output = %q", out)
	}
}

func TestDenyConflictIsAPIError(t *testing.T) {
	_, srv := newFakeServer(t)

	_, err := execute(t, srv.URL, "deny", "r1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "already resolved" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestResetCommand(t *testing.T) {
	api, srv := newFakeServer(t)
	out, err := execute(t, srv.URL, "reset")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if api.lastPath != "POST /api/v1/reset" || !strings.Contains(out, "reset") {
		t.Errorf("path = %q, out = %q", api.lastPath, out)
	}
}
