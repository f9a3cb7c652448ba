package messagequeue

// RunEventPayload is the schema for support.runs.events.* messages.
type RunEventPayload struct {
	Type                  string `json:"type"`
	RunID                 string `json:"run_id"`
	Step                  string `json:"step,omitempty"`
	Route                 string `json:"route,omitempty"`
	GuardRail             string `json:"guard_rail,omitempty"`
	Success               *bool  `json:"success,omitempty"`
	RequiresHumanApproval bool   `json:"requires_human_approval,omitempty"`
	Response              string `json:"response,omitempty"`
	Error                 string `json:"error,omitempty"`
	RequestID             string `json:"request_id,omitempty"`
}

// ApprovalRequestedPayload is the schema for support.approvals.requested messages.
type ApprovalRequestedPayload struct {
	RunID     string   `json:"run_id"`
	Route     string   `json:"route"`
	GuardRail string   `json:"guard_rail"`
	UserID    int64    `json:"user_id"`
	OrderID   *int64   `json:"order_id,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Ceiling   float64  `json:"ceiling,omitempty"`
}

// ApprovalDecisionPayload is the schema for support.approvals.decision messages.
type ApprovalDecisionPayload struct {
	RunID    string `json:"run_id"`
	Approved bool   `json:"approved"`
	Decider  string `json:"decider"`
	Notes    string `json:"notes,omitempty"`
}

// ApprovalResolvedPayload is the schema for support.approvals.resolved messages.
type ApprovalResolvedPayload struct {
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Decider  string `json:"decider"`
	Success  bool   `json:"success"`
	Response string `json:"response"`
}
