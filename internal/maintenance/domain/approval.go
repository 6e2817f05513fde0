package domain

// ApprovalMode is the property policy's approval regime.
type ApprovalMode string

const (
	ApprovalModeNone       ApprovalMode = "none"
	ApprovalModeAll        ApprovalMode = "all"
	ApprovalModeOverAmount ApprovalMode = "over_amount"
)

// PolicyView is the slice of a PropertyPolicy the workflow engine consumes.
// It is always passed explicitly; the engine never reads policy ambiently.
type PolicyView struct {
	PaymentResponsibility   PaymentResponsibility
	SplitCeilingCents       int64
	ApprovalMode            ApprovalMode
	AutoApprovalLimitCents  int64
	RequirePhotos           bool
	RequireCompletionPhotos bool
	EmergencyAutoApprove    bool
}

// RequiresCompletionPhoto reports whether the completion transition must be
// gated on verified photo evidence.
func (p PolicyView) RequiresCompletionPhoto() bool {
	return p.RequirePhotos || p.RequireCompletionPhotos
}

// RouteApproval applies the policy decision table to a classified request.
//
//	mode "none"        → approved, no manual step (not_required)
//	mode "all"         → manual approval regardless of cost
//	mode "over_amount" → auto-approved iff cost is known and ≤ the limit
//	emergency + policy.EmergencyAutoApprove → auto-approve, overriding the above
//
// estimatedCostCents is nil when the cost is unknown, which always routes to
// manual approval under "over_amount".
func RouteApproval(c Classification, estimatedCostCents *int64, policy PolicyView) ApprovalStatus {
	if c.IsEmergency && policy.EmergencyAutoApprove {
		return ApprovalNotRequired
	}

	switch policy.ApprovalMode {
	case ApprovalModeNone:
		return ApprovalNotRequired
	case ApprovalModeAll:
		return ApprovalPending
	case ApprovalModeOverAmount:
		if estimatedCostCents != nil && *estimatedCostCents <= policy.AutoApprovalLimitCents {
			return ApprovalApproved
		}
		return ApprovalPending
	default:
		// Unknown mode behaves like "all": the conservative choice.
		return ApprovalPending
	}
}

// ApprovalGrantsProgress reports whether the routed status lets the request
// move past submitted without a manual approval action.
func ApprovalGrantsProgress(s ApprovalStatus) bool {
	return s == ApprovalApproved || s == ApprovalNotRequired
}
