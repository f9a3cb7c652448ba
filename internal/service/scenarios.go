package service

import "github.com/Strob0t/AutoCRM/internal/domain/workflow"

// Scenario is a canned demo request.
type Scenario struct {
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Request     workflow.Request `json:"request"`
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func stringPtr(v string) *string    { return &v }

// DemoScenarios returns the three walkthrough scenarios against the demo data.
func DemoScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "detective",
			Title:       "The Detective",
			Description: "Order status lookup for an existing order.",
			Request:     workflow.Request{Message: "Where is my order #101?", UserID: 1},
		},
		{
			Name:        "guardian",
			Title:       "The Guardian",
			Description: "Refund to a card that is not on file is blocked.",
			Request: workflow.Request{
				Message:   "I want to refund order #102 to a different card",
				UserID:    2,
				OrderID:   int64Ptr(102),
				CardLast4: stringPtr("9999"),
				Amount:    float64Ptr(89.50),
			},
		},
		{
			Name:        "manager",
			Title:       "The Manager",
			Description: "Refund above the automatic ceiling waits for approval.",
			Request: workflow.Request{
				Message:   "I want a $599 refund for order #103",
				UserID:    3,
				OrderID:   int64Ptr(103),
				CardLast4: stringPtr("7890"),
				Amount:    float64Ptr(599.99),
			},
		},
	}
}

// FindScenario returns the scenario with the given name.
func FindScenario(name string) (Scenario, bool) {
	for _, s := range DemoScenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
