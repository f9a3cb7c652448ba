package a2a

// SkillSupportRequest is the only skill the agent offers.
const SkillSupportRequest = "support-request"

// Task states.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// AgentCard describes an agent's capabilities per the A2A protocol.
type AgentCard struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
	Version      string       `json:"version"`
	Skills       []Skill      `json:"skills"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities lists optional protocol features.
type Capabilities struct {
	Streaming bool `json:"streaming"`
}

// Skill describes a single capability of the agent.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	InputModes  []string `json:"inputModes"`
	OutputModes []string `json:"outputModes"`
}

// TaskRequest represents an incoming A2A task request.
type TaskRequest struct {
	ID    string    `json:"id"`
	Skill string    `json:"skill"`
	Input TaskInput `json:"input"`
}

// TaskInput carries the support request fields.
type TaskInput struct {
	Message   string   `json:"message"`
	UserID    int64    `json:"user_id"`
	OrderID   *int64   `json:"order_id,omitempty"`
	CardLast4 *string  `json:"card_last4,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
}

// TaskResponse represents an A2A task response.
type TaskResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Output map[string]any `json:"output,omitempty"` //nolint:gosec // A2A protocol requires flexible output
	Error  string         `json:"error,omitempty"`
}
