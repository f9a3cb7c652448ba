// Package mcp exposes the support workflow to AI agents over the Model
// Context Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

// Runner executes a support request through the workflow.
type Runner interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.State, error)
}

// ApprovalResolver lists and resolves suspended runs.
type ApprovalResolver interface {
	List(ctx context.Context, status approval.Status) ([]approval.Approval, error)
	Approve(ctx context.Context, runID, decider, notes string) (*approval.Approval, error)
	Deny(ctx context.Context, runID, decider, notes string) (*approval.Approval, error)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string // empty disables auth
}

// ServerDeps are the services the tools call into. Nil deps make the
// matching tools return an error result.
type ServerDeps struct {
	Runner    Runner
	Approvals ApprovalResolver
}

// Server wraps an MCP server and its HTTP listener.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	http      *http.Server
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the authenticated streamable HTTP handler.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer))
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen %s: %w", s.cfg.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", s.Handler())
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", ln.Addr().String())
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	slog.Info("mcp server stopping")
	return s.http.Shutdown(ctx)
}
