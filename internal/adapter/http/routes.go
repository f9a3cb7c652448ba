package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/AutoCRM/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. approverKeyHash
// supplies the bcrypt hash guarding approve and deny; nil or empty disables the check.
func MountRoutes(r chi.Router, h *Handlers, approverKeyHash func() string) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Intake
		r.Post("/chat", h.Chat)
		r.Post("/runs", h.StartRun)

		// Demo
		r.Get("/scenarios", h.ListScenarios)
		r.Post("/scenarios/{name}/run", h.RunScenario)
		r.Post("/reset", h.Reset)

		// Approvals
		r.Get("/approvals", h.ListApprovals)
		r.Get("/approvals/{runID}", h.GetApproval)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ApproverKey(approverKeyHash))
			r.Post("/approvals/{runID}/approve", h.ApproveRun)
			r.Post("/approvals/{runID}/deny", h.DenyRun)
		})
	})
}
