package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
)

const defaultDecider = "mcp"

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.supportRequestTool(),
		s.approveRequestTool(),
		s.denyRequestTool(),
		s.listApprovalsTool(),
	)
}

func (s *Server) supportRequestTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("support_request",
		mcplib.WithDescription("Run a customer support request through triage and the matching specialist"),
		mcplib.WithString("message", mcplib.Required(), mcplib.Description("The customer's message")),
		mcplib.WithNumber("user_id", mcplib.Required(), mcplib.Description("Requesting customer id")),
		mcplib.WithNumber("order_id", mcplib.Description("Order to refund (refunds only)")),
		mcplib.WithString("card_last4", mcplib.Description("Card suffix for the refund (refunds only)")),
		mcplib.WithNumber("amount", mcplib.Description("Refund amount (refunds only)")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSupportRequest}
}

func (s *Server) approveRequestTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{Tool: decisionTool("approve_request", "Approve a run waiting for human approval"), Handler: s.handleApprove}
}

func (s *Server) denyRequestTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{Tool: decisionTool("deny_request", "Deny a run waiting for human approval"), Handler: s.handleDeny}
}

func decisionTool(name, description string) mcplib.Tool {
	return mcplib.NewTool(name,
		mcplib.WithDescription(description),
		mcplib.WithString("run_id", mcplib.Required(), mcplib.Description("The suspended run id")),
		mcplib.WithString("decider", mcplib.Description("Who made the decision")),
		mcplib.WithString("notes", mcplib.Description("Optional notes for the customer")),
	)
}

func (s *Server) listApprovalsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_approvals",
		mcplib.WithDescription("List suspended runs, optionally filtered by status"),
		mcplib.WithString("status", mcplib.Description("pending, approved or denied; empty lists all")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListApprovals}
}

func (s *Server) handleSupportRequest(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Runner == nil {
		return mcplib.NewToolResultError("workflow not configured"), nil
	}
	args := req.GetArguments()
	message, _ := args["message"].(string)
	userID, ok := intArg(args, "user_id")
	if message == "" || !ok {
		return mcplib.NewToolResultError("message and user_id are required"), nil
	}

	wreq := workflow.Request{Message: message, UserID: userID}
	if id, ok := intArg(args, "order_id"); ok {
		wreq.OrderID = &id
	}
	if card, ok := args["card_last4"].(string); ok && card != "" {
		wreq.CardLast4 = &card
	}
	if amount, ok := args["amount"].(float64); ok {
		wreq.Amount = &amount
	}

	st, err := s.deps.Runner.Run(ctx, wreq)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("support request failed", err), nil
	}
	return marshalResult(st.Result())
}

func (s *Server) handleApprove(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.decide(ctx, req, true)
}

func (s *Server) handleDeny(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.decide(ctx, req, false)
}

func (s *Server) decide(ctx context.Context, req mcplib.CallToolRequest, approve bool) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Approvals == nil {
		return mcplib.NewToolResultError("approvals not configured"), nil
	}
	args := req.GetArguments()
	runID, _ := args["run_id"].(string)
	if runID == "" {
		return mcplib.NewToolResultError("run_id is required"), nil
	}
	decider, _ := args["decider"].(string)
	if decider == "" {
		decider = defaultDecider
	}
	notes, _ := args["notes"].(string)

	var (
		a   *approval.Approval
		err error
	)
	if approve {
		a, err = s.deps.Approvals.Approve(ctx, runID, decider, notes)
	} else {
		a, err = s.deps.Approvals.Deny(ctx, runID, decider, notes)
	}
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to resolve run %s", runID), err), nil
	}
	return marshalResult(a)
}

func (s *Server) handleListApprovals(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Approvals == nil {
		return mcplib.NewToolResultError("approvals not configured"), nil
	}
	status, _ := req.GetArguments()["status"].(string)
	list, err := s.deps.Approvals.List(ctx, approval.Status(status))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list approvals", err), nil
	}
	if list == nil {
		list = []approval.Approval{}
	}
	return marshalResult(list)
}

// intArg reads a JSON number argument as an int64.
func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), v > 0 && v == float64(int64(v))
	case int:
		return int64(v), v > 0
	case int64:
		return v, v > 0
	}
	return 0, false
}

func marshalResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}
