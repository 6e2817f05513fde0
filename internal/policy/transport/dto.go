package transport

import (
	"time"

	"github.com/google/uuid"
)

// UpsertPolicyRequest creates or replaces the policy for a property.
type UpsertPolicyRequest struct {
	PaymentResponsibility   string `json:"paymentResponsibility" validate:"required,oneof=landlord tenant split"`
	SplitCeilingCents       int64  `json:"splitCeilingCents" validate:"min=0"`
	ApprovalMode            string `json:"approvalMode" validate:"required,oneof=none all over_amount"`
	AutoApprovalLimitCents  int64  `json:"autoApprovalLimitCents" validate:"min=0"`
	RequirePhotos           bool   `json:"requirePhotos"`
	RequireCompletionPhotos bool   `json:"requireCompletionPhotos"`
	EmergencyAutoApprove    bool   `json:"emergencyAutoApprove"`
}

// PolicyResponse is the stored policy for a property.
type PolicyResponse struct {
	ID                      uuid.UUID `json:"id"`
	PropertyID              uuid.UUID `json:"propertyId"`
	PaymentResponsibility   string    `json:"paymentResponsibility"`
	SplitCeilingCents       int64     `json:"splitCeilingCents"`
	ApprovalMode            string    `json:"approvalMode"`
	AutoApprovalLimitCents  int64     `json:"autoApprovalLimitCents"`
	RequirePhotos           bool      `json:"requirePhotos"`
	RequireCompletionPhotos bool      `json:"requireCompletionPhotos"`
	EmergencyAutoApprove    bool      `json:"emergencyAutoApprove"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}
