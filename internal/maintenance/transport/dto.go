package transport

import (
	"time"

	"github.com/google/uuid"
)

// SubmitRequestRequest contains the tenant's raw submission.
type SubmitRequestRequest struct {
	PropertyID         uuid.UUID `json:"propertyId" validate:"required"`
	Category           string    `json:"category" validate:"required,max=50"`
	Description        string    `json:"description" validate:"required,min=5,max=4000"`
	DeclaredUrgency    string    `json:"declaredUrgency,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	EstimatedCostCents *int64    `json:"estimatedCostCents,omitempty" validate:"omitempty,min=0"`
}

// ApproveRequestRequest is the optional payload for a manual approval.
type ApproveRequestRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

// DenyRequestRequest carries the mandatory denial reason.
type DenyRequestRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// CompleteRequestRequest carries the optional tenant rating at completion.
type CompleteRequestRequest struct {
	Rating *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review,omitempty" validate:"omitempty,max=2000"`
}

// CancelRequestRequest carries the mandatory cancellation reason.
type CancelRequestRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// RequestResponse is the full request snapshot returned by every command.
type RequestResponse struct {
	ID                    uuid.UUID  `json:"id"`
	PropertyID            uuid.UUID  `json:"propertyId"`
	TenantID              uuid.UUID  `json:"tenantId"`
	Category              string     `json:"category"`
	Priority              string     `json:"priority"`
	Description           string     `json:"description"`
	IsEmergency           bool       `json:"isEmergency"`
	EmergencyType         string     `json:"emergencyType,omitempty"`
	Status                string     `json:"status"`
	ApprovalStatus        string     `json:"approvalStatus"`
	ApprovalReason        *string    `json:"approvalReason,omitempty"`
	ApprovedBy            *uuid.UUID `json:"approvedBy,omitempty"`
	EstimatedCostCents    *int64     `json:"estimatedCostCents,omitempty"`
	PaymentResponsibility string     `json:"paymentResponsibility"`
	SelectedBidID         *uuid.UUID `json:"selectedBidId,omitempty"`
	AssignedProviderID    *uuid.UUID `json:"assignedProviderId,omitempty"`
	Rating                *int       `json:"rating,omitempty"`
	Review                *string    `json:"review,omitempty"`
	CompletionDate        *time.Time `json:"completionDate,omitempty"`
	CancelledBy           *uuid.UUID `json:"cancelledBy,omitempty"`
	CancelReason          *string    `json:"cancelReason,omitempty"`
	Version               int64      `json:"version"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// RequestListResponse wraps a list of requests.
type RequestListResponse struct {
	Items []RequestResponse `json:"items"`
	Total int               `json:"total"`
}
