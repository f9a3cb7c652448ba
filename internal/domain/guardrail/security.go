package guardrail

import (
	"fmt"
	"strings"
)

// SecurityRule maps message keywords to a security policy outcome.
type SecurityRule struct {
	Keywords         []string
	Code             Code
	RequiresApproval bool
	Blocked          bool
	Policy           string
}

// SecurityVerdict is the outcome of evaluating a message against the rules.
type SecurityVerdict struct {
	Code             Code   `json:"guard_rail,omitempty"`
	RequiresApproval bool   `json:"requires_approval"`
	Blocked          bool   `json:"blocked"`
	Policy           string `json:"policy,omitempty"`
	RuleIndex        int    `json:"rule_index"` // -1 if no rule matched
}

// SecurityRules is the ordered keyword table. First match wins.
var SecurityRules = []SecurityRule{
	{
		Keywords:         []string{"cancel"},
		Code:             ManualVerification,
		RequiresApproval: true,
		Policy:           "Order cancellations require manual verification. A support agent will contact the customer within 24 hours.",
	},
	{
		Keywords: []string{"card"},
		Code:     CardUpdateBlocked,
		Blocked:  true,
		Policy:   "Card updates are blocked for security reasons. The customer must contact support directly.",
	},
	{
		Keywords:         []string{"pii", "personal information"},
		Code:             PIIVerification,
		RequiresApproval: true,
		Policy:           "PII requests require identity verification via email. A verification link has been sent.",
	},
	{
		Keywords: []string{"address"},
		Code:     AddressVerification,
		Policy:   "Address updates are allowed but require email verification. The customer will receive a verification email.",
	},
}

// EvaluateSecurity inspects the message for policy keywords using
// first-match-wins over SecurityRules. The match is case-insensitive.
func EvaluateSecurity(message string) SecurityVerdict {
	lower := strings.ToLower(message)
	for i := range SecurityRules {
		rule := &SecurityRules[i]
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return SecurityVerdict{
					Code:             rule.Code,
					RequiresApproval: rule.RequiresApproval,
					Blocked:          rule.Blocked,
					Policy:           rule.Policy,
					RuleIndex:        i,
				}
			}
		}
	}
	return SecurityVerdict{RuleIndex: -1}
}

// PolicyStatements returns the numbered policy text used to prime replies.
func PolicyStatements() string {
	var b strings.Builder
	for i := range SecurityRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, SecurityRules[i].Policy)
	}
	return b.String()
}
