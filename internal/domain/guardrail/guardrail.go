// Package guardrail defines the closed set of business and security policies
// that can block, warn on, or escalate a support request.
package guardrail

// Code identifies which policy fired for a run. A run carries at most one code.
type Code string

const (
	// None means no guardrail fired.
	None Code = ""

	// Refund domain.
	UserMismatch     Code = "USER_MISMATCH"
	CardMismatch     Code = "CARD_MISMATCH"
	AmountExceeded   Code = "AMOUNT_EXCEEDED"
	RequiresApproval Code = "REQUIRES_APPROVAL"

	// Security domain.
	ManualVerification  Code = "MANUAL_VERIFICATION"
	CardUpdateBlocked   Code = "CARD_UPDATE_BLOCKED"
	PIIVerification     Code = "PII_VERIFICATION"
	AddressVerification Code = "ADDRESS_VERIFICATION"
)

// Domain groups codes by the specialist that raises them.
type Domain string

const (
	DomainNone     Domain = ""
	DomainRefund   Domain = "refund"
	DomainSecurity Domain = "security"
)

var domains = map[Code]Domain{
	None:                DomainNone,
	UserMismatch:        DomainRefund,
	CardMismatch:        DomainRefund,
	AmountExceeded:      DomainRefund,
	RequiresApproval:    DomainRefund,
	ManualVerification:  DomainSecurity,
	CardUpdateBlocked:   DomainSecurity,
	PIIVerification:     DomainSecurity,
	AddressVerification: DomainSecurity,
}

// Valid reports whether c is a member of the closed set (None included).
func (c Code) Valid() bool {
	_, ok := domains[c]
	return ok
}

// Fired reports whether c names an actual policy.
func (c Code) Fired() bool {
	return c != None
}

// Domain returns the specialist domain that owns c.
func (c Code) Domain() Domain {
	return domains[c]
}

// String returns the wire form; None renders as "NONE" for logs.
func (c Code) String() string {
	if c == None {
		return "NONE"
	}
	return string(c)
}
