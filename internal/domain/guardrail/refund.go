package guardrail

// AutoApprovalCeiling is the largest refund amount (in currency units) that is
// processed without human sign-off.
const AutoApprovalCeiling = 50.0

// ExceedsOrderAmount reports whether the requested refund is larger than the
// order total. A refund equal to the order total is allowed.
func ExceedsOrderAmount(requested, orderAmount float64) bool {
	return requested > orderAmount
}

// ExceedsCeiling reports whether the requested refund needs human approval.
// The comparison is strict: a refund equal to the ceiling is auto-approved.
func ExceedsCeiling(requested, ceiling float64) bool {
	return requested > ceiling
}
