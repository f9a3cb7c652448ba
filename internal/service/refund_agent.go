package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/guardrail"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/logger"
	"github.com/Strob0t/AutoCRM/internal/port/database"
	"github.com/Strob0t/AutoCRM/internal/port/llm"
)

const refundPrompt = `You are a refund specialist agent. Process refund requests with appropriate security checks and approval workflows.

Be empathetic, professional, and clear in your explanations. When security policies block a request or approval is needed, explain why in a friendly manner.`

const (
	securityAlertPrefix = "🛡️ Security Alert: "
	pausedPrefix        = "⏸️ "
	confirmedPrefix     = "✅ "

	refundMissingInput = "Missing required information for refund (orderId, cardLast4, amount)"
)

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// RefundAgent runs the ordered refund validation chain. Only the final step
// writes to the store.
type RefundAgent struct {
	llm     llm.Completer
	store   database.CustomerStore
	ceiling float64
}

// NewRefundAgent creates a RefundAgent. A non-positive ceiling uses
// guardrail.AutoApprovalCeiling.
func NewRefundAgent(c llm.Completer, store database.CustomerStore, ceiling float64) *RefundAgent {
	if ceiling <= 0 {
		ceiling = guardrail.AutoApprovalCeiling
	}
	return &RefundAgent{llm: c, store: store, ceiling: ceiling}
}

// Ceiling returns the automatic approval ceiling in use.
func (a *RefundAgent) Ceiling() float64 { return a.ceiling }

// Handle validates the request in order, short-circuiting at the first failure.
func (a *RefundAgent) Handle(ctx context.Context, s *workflow.State) (workflow.Update, error) {
	if s.OrderID == nil || s.CardLast4 == nil || *s.CardLast4 == "" || s.Amount == nil {
		return refusal(refundMissingInput, guardrail.None), nil
	}
	orderID, card, amount := *s.OrderID, *s.CardLast4, *s.Amount

	// 1. order exists
	order, err := a.store.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return refusal(fmt.Sprintf("Order #%d not found in our system.", orderID), guardrail.None), nil
	}
	if err != nil {
		return workflow.Update{}, fmt.Errorf("get order %d: %w", orderID, err)
	}

	// 2. ownership
	if !order.OwnedBy(s.UserID) {
		text, err := a.explain(ctx, fmt.Sprintf(
			"The customer tried to refund order #%d, but this order does not belong to their account. This is blocked for security. Explain this policy empathetically.",
			orderID))
		if err != nil {
			return workflow.Update{}, err
		}
		return refusal(securityAlertPrefix+text, guardrail.UserMismatch), nil
	}

	// 3. requester exists
	user, err := a.store.GetUser(ctx, s.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return refusal("User account not found.", guardrail.None), nil
	}
	if err != nil {
		return workflow.Update{}, fmt.Errorf("get user %d: %w", s.UserID, err)
	}

	// 4. card on file
	if user.CardLast4 != card {
		text, err := a.explain(ctx, fmt.Sprintf(
			"The customer tried to refund to card ending in %s, but their original payment was to card ending in %s. This is blocked for security. Explain this policy empathetically.",
			card, user.CardLast4))
		if err != nil {
			return workflow.Update{}, err
		}
		return refusal(securityAlertPrefix+text, guardrail.CardMismatch), nil
	}

	// 5. amount within order total
	if guardrail.ExceedsOrderAmount(amount, order.Amount) {
		text, err := a.explain(ctx, fmt.Sprintf(
			"The customer requested a refund of %s for order #%d, but the order amount was only %s. Refunds cannot exceed the original order amount. Explain this politely.",
			money(amount), orderID, money(order.Amount)))
		if err != nil {
			return workflow.Update{}, err
		}
		return refusal(text, guardrail.AmountExceeded), nil
	}

	// 6. approval ceiling
	if guardrail.ExceedsCeiling(amount, a.ceiling) {
		text, err := a.explain(ctx, fmt.Sprintf(
			"Customer requested a refund of %s, which exceeds our %s automatic approval threshold. Explain that a manager will review this within 24 hours.",
			money(amount), money(a.ceiling)))
		if err != nil {
			return workflow.Update{}, err
		}
		return workflow.Update{
			Response:              workflow.String(pausedPrefix + text),
			Success:               workflow.Bool(false),
			GuardRail:             guardrail.RequiresApproval,
			RequiresHumanApproval: workflow.Bool(true),
			Data: map[string]any{
				"order_id":  orderID,
				"amount":    amount,
				"threshold": a.ceiling,
			},
		}, nil
	}

	// 7. refund
	return a.Complete(ctx, orderID, card, amount)
}

// Complete applies the status change and confirms it. It is also the
// deferred side effect of an approved suspension.
func (a *RefundAgent) Complete(ctx context.Context, orderID int64, card string, amount float64) (workflow.Update, error) {
	err := a.store.SetOrderStatus(ctx, orderID, customer.StatusRefunded)
	switch {
	case errors.Is(err, domain.ErrConflict):
		return refusal(fmt.Sprintf("Order #%d has already been refunded.", orderID), guardrail.None), nil
	case errors.Is(err, domain.ErrNotFound):
		return refusal(fmt.Sprintf("Order #%d not found in our system.", orderID), guardrail.None), nil
	case err != nil:
		return workflow.Update{}, fmt.Errorf("refund order %d: %w", orderID, err)
	}

	text, err := a.explain(ctx, fmt.Sprintf(
		"Successfully processed a refund of %s for order #%d to card ending in %s. Confirm this to the customer in a friendly way.",
		money(amount), orderID, card))
	if err != nil {
		// The refund is already written; confirm it with fixed text.
		logger.From(ctx).Warn("refund confirmation fell back to fixed text", "order_id", orderID, "error", err)
		text = fmt.Sprintf("Your refund of %s for order #%d has been processed to the card ending in %s.",
			money(amount), orderID, card)
	}
	return workflow.Update{
		Response: workflow.String(confirmedPrefix + text),
		Success:  workflow.Bool(true),
		Data: map[string]any{
			"order_id":      orderID,
			"refund_amount": amount,
			"status":        string(customer.StatusRefunded),
		},
	}, nil
}

func (a *RefundAgent) explain(ctx context.Context, situation string) (string, error) {
	text, err := a.llm.Generate(ctx, refundPrompt, situation)
	if err != nil {
		return "", fmt.Errorf("refund reply: %w", err)
	}
	return text, nil
}

func refusal(text string, code guardrail.Code) workflow.Update {
	return workflow.Update{
		Response:  workflow.String(text),
		Success:   workflow.Bool(false),
		GuardRail: code,
	}
}
