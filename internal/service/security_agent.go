package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/port/llm"
)

func securityPrompt(userID int64) string {
	return "You are a security specialist agent. Handle sensitive customer requests with appropriate security guardrails.\n\n" +
		"SECURITY POLICIES (YOU MUST FOLLOW):\n" +
		guardrail.PolicyStatements() +
		"\nBe professional, security-conscious, and empathetic. Explain policies clearly." +
		fmt.Sprintf("\n\nUser ID: %d", userID)
}

// SecurityAgent handles cancellations, card updates, PII and address requests.
type SecurityAgent struct {
	llm llm.Completer
}

// NewSecurityAgent creates a SecurityAgent.
func NewSecurityAgent(c llm.Completer) *SecurityAgent {
	return &SecurityAgent{llm: c}
}

// Handle generates the reply and derives the guardrail from the message
// keywords. The keyword verdict decides the outcome, not the generated text.
func (a *SecurityAgent) Handle(ctx context.Context, s *workflow.State) (workflow.Update, error) {
	reply, err := a.llm.Generate(ctx, securityPrompt(s.UserID), s.Message)
	if err != nil {
		return workflow.Update{}, fmt.Errorf("security reply: %w", err)
	}

	verdict := guardrail.EvaluateSecurity(s.Message)
	u := workflow.Update{
		Response:              workflow.String(reply),
		Success:               workflow.Bool(!verdict.Blocked),
		GuardRail:             verdict.Code,
		RequiresHumanApproval: workflow.Bool(verdict.RequiresApproval),
	}
	if verdict.Code.Fired() {
		u.Data = map[string]any{"policy": verdict.Policy}
	}
	return u, nil
}
