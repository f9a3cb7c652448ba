package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"autocrm://approvals/pending",
			"Pending Approvals",
			mcplib.WithResourceDescription("Runs waiting for a human decision"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handlePendingResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"autocrm://policies/security",
			"Security Policies",
			mcplib.WithResourceDescription("Keyword policies applied to security requests"),
			mcplib.WithMIMEType("text/plain"),
		),
		s.handlePoliciesResource,
	)
}

func (s *Server) handlePendingResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Approvals == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"approvals not configured"}`,
			},
		}, nil
	}
	list, err := s.deps.Approvals.List(ctx, approval.StatusPending)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []approval.Approval{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePoliciesResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     guardrail.PolicyStatements(),
		},
	}, nil
}
