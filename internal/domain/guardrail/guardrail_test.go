package guardrail

import (
	"strings"
	"testing"
)

func TestEvaluateSecurity(t *testing.T) {
	tests := []struct {
		name         string
		message      string
		wantCode     Code
		wantApproval bool
		wantBlocked  bool
	}{
		{"cancel", "Please cancel my order", ManualVerification, true, false},
		{"card", "I need to update my card", CardUpdateBlocked, false, true},
		{"pii", "Send me my PII", PIIVerification, true, false},
		{"personal information", "What personal information do you hold?", PIIVerification, true, false},
		{"address", "Change my shipping address", AddressVerification, false, false},
		{"none", "Hello there", None, false, false},
		{"cancel wins over card", "Cancel the order and update my card", ManualVerification, true, false},
		{"card wins over address", "new card and address please", CardUpdateBlocked, false, true},
		{"case insensitive", "CANCEL NOW", ManualVerification, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateSecurity(tt.message)
			if got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.RequiresApproval != tt.wantApproval {
				t.Errorf("requires approval = %v, want %v", got.RequiresApproval, tt.wantApproval)
			}
			if got.Blocked != tt.wantBlocked {
				t.Errorf("blocked = %v, want %v", got.Blocked, tt.wantBlocked)
			}
		})
	}
}

func TestEvaluateSecurity_NoMatchRuleIndex(t *testing.T) {
	if got := EvaluateSecurity("where is my parcel"); got.RuleIndex != -1 {
		t.Errorf("expected rule index -1, got %d", got.RuleIndex)
	}
}

func TestCodeDomain(t *testing.T) {
	refund := []Code{UserMismatch, CardMismatch, AmountExceeded, RequiresApproval}
	for _, c := range refund {
		if c.Domain() != DomainRefund {
			t.Errorf("%s: expected refund domain, got %q", c, c.Domain())
		}
	}
	security := []Code{ManualVerification, CardUpdateBlocked, PIIVerification, AddressVerification}
	for _, c := range security {
		if c.Domain() != DomainSecurity {
			t.Errorf("%s: expected security domain, got %q", c, c.Domain())
		}
	}
	if None.Fired() {
		t.Error("None must not count as fired")
	}
	if !None.Valid() {
		t.Error("None must be a valid member of the set")
	}
	if Code("SOMETHING_ELSE").Valid() {
		t.Error("unknown code must be invalid")
	}
}

func TestRefundBoundaries(t *testing.T) {
	if ExceedsOrderAmount(89.50, 89.50) {
		t.Error("refund equal to order amount must pass")
	}
	if !ExceedsOrderAmount(89.51, 89.50) {
		t.Error("refund above order amount must fail")
	}
	if ExceedsCeiling(50, AutoApprovalCeiling) {
		t.Error("refund equal to ceiling must not require approval")
	}
	if !ExceedsCeiling(50.01, AutoApprovalCeiling) {
		t.Error("refund above ceiling must require approval")
	}
}

func TestPolicyStatements(t *testing.T) {
	s := PolicyStatements()
	for i := range SecurityRules {
		if !strings.Contains(s, SecurityRules[i].Policy) {
			t.Errorf("policy statements missing rule %d", i)
		}
	}
	if !strings.HasPrefix(s, "1. ") {
		t.Errorf("expected numbered statements, got %q", s[:10])
	}
}
