package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/domain/customer"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/port/database"
	"github.com/Strob0t/AutoCRM/internal/port/llm"
)

const orderPrompt = `You are an order specialist agent. Help users with order inquiries.

You have access to these tools:
- getOrderById(orderId): Get details of a specific order
- getUserOrders(userId): Get all orders for a user

Decide which tool to use based on the user's question. If they mention a specific order number, use getOrderById. If they ask for "all orders" or order history, use getUserOrders.

Respond in a helpful, friendly manner with the order information.`

const orderToolError = "I encountered an error processing your request."

const (
	toolGetOrderByID   = "getOrderById"
	toolGetUserOrders  = "getUserOrders"
	toolDecisionPrefix = "TOOL:"
)

func orderDecisionPrompt(message string, userID int64) string {
	return fmt.Sprintf(`You are an order specialist. Based on the user's message, decide which tool to use:
- If they mention a specific order number (like #101, #102), respond with: TOOL:getOrderById:ORDER_NUMBER
- If they ask for "all orders", "my orders", or order history, respond with: TOOL:getUserOrders:%d
- Otherwise, respond normally

User message: %q

Respond with either TOOL:functionName:argument or a normal message.`, userID, message)
}

// toolDecision is a parsed TOOL:<name>:<arg> reply.
type toolDecision struct {
	Tool string
	Arg  string
}

// parseToolDecision reports whether text is a tool selection and, if so, splits it.
func parseToolDecision(text string) (toolDecision, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, toolDecisionPrefix) {
		return toolDecision{}, false
	}
	parts := strings.SplitN(strings.TrimPrefix(text, toolDecisionPrefix), ":", 2)
	d := toolDecision{Tool: strings.TrimSpace(parts[0])}
	if len(parts) == 2 {
		d.Arg = strings.TrimSpace(parts[1])
	}
	return d, true
}

// orderView is the lookup payload handed to the phrasing step.
type orderView struct {
	OrderID   int64                `json:"orderId"`
	UserID    int64                `json:"userId,omitempty"`
	Status    customer.OrderStatus `json:"status"`
	Amount    float64              `json:"amount"`
	Items     []customer.LineItem  `json:"items"`
	CreatedAt time.Time            `json:"createdAt"`
}

type lookupError struct {
	Error string `json:"error"`
}

// OrderAgent answers order-status and order-history questions.
type OrderAgent struct {
	llm   llm.Completer
	store database.CustomerStore
}

// NewOrderAgent creates an OrderAgent.
func NewOrderAgent(c llm.Completer, store database.CustomerStore) *OrderAgent {
	return &OrderAgent{llm: c, store: store}
}

// Handle runs the decide, look up, phrase protocol. Lookup misses are data,
// not errors; the handler always reports success.
func (a *OrderAgent) Handle(ctx context.Context, s *workflow.State) (workflow.Update, error) {
	decision, err := a.llm.Generate(ctx, orderDecisionPrompt(s.Message, s.UserID), s.Message)
	if err != nil {
		return workflow.Update{}, fmt.Errorf("order decision: %w", err)
	}

	tool, ok := parseToolDecision(decision)
	if !ok {
		return workflow.Update{Response: workflow.String(decision), Success: workflow.Bool(true)}, nil
	}

	var result any
	switch tool.Tool {
	case toolGetOrderByID:
		result, err = a.orderByID(ctx, tool.Arg)
	case toolGetUserOrders:
		result, err = a.userOrders(ctx, s.UserID)
	default:
		return workflow.Update{
			Response: workflow.String(orderToolError),
			Success:  workflow.Bool(true),
			Data:     map[string]any{"tool": tool.Tool},
		}, nil
	}
	if err != nil {
		return workflow.Update{}, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return workflow.Update{}, fmt.Errorf("marshal %s result: %w", tool.Tool, err)
	}

	reply, err := a.llm.Generate(ctx, orderPrompt, s.Message,
		"Tool result: "+string(payload)+". Use this data to respond to the user in a friendly way.")
	if err != nil {
		return workflow.Update{}, fmt.Errorf("order reply: %w", err)
	}
	return workflow.Update{
		Response: workflow.String(reply),
		Success:  workflow.Bool(true),
		Data:     map[string]any{"tool": tool.Tool},
	}, nil
}

func (a *OrderAgent) orderByID(ctx context.Context, arg string) (any, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil {
		return lookupError{Error: fmt.Sprintf("Order #%s not found", arg)}, nil
	}
	o, err := a.store.GetOrder(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return lookupError{Error: fmt.Sprintf("Order #%d not found", id)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return orderView{
		OrderID:   o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		Amount:    o.Amount,
		Items:     o.Items,
		CreatedAt: o.CreatedAt,
	}, nil
}

func (a *OrderAgent) userOrders(ctx context.Context, userID int64) (any, error) {
	orders, err := a.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	if len(orders) == 0 {
		return lookupError{Error: fmt.Sprintf("No orders found for user #%d", userID)}, nil
	}
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		views = append(views, orderView{
			OrderID:   o.ID,
			Status:    o.Status,
			Amount:    o.Amount,
			Items:     o.Items,
			CreatedAt: o.CreatedAt,
		})
	}
	return views, nil
}
