package repository

import (
	"context"
	"time"

	"propertyops_backend/internal/maintenance/domain"

	"github.com/google/uuid"
)

// Request is the persisted maintenance request. It is owned exclusively by
// the maintenance module and mutated only through the version-guarded methods
// on Repository.
type Request struct {
	ID                    uuid.UUID
	PropertyID            uuid.UUID
	TenantID              uuid.UUID
	Category              domain.Category
	Priority              domain.Priority
	Description           string
	IsEmergency           bool
	EmergencyType         domain.EmergencyType
	Status                domain.Status
	ApprovalStatus        domain.ApprovalStatus
	ApprovalReason        *string
	ApprovedBy            *uuid.UUID
	EstimatedCostCents    *int64
	PaymentResponsibility domain.PaymentResponsibility
	SelectedBidID         *uuid.UUID
	AssignedProviderID    *uuid.UUID
	Rating                *int
	Review                *string
	CompletionDate        *time.Time
	CancelledBy           *uuid.UUID
	CancelReason          *string
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CreateParams holds the fields for inserting a new request.
type CreateParams struct {
	PropertyID            uuid.UUID
	TenantID              uuid.UUID
	Category              domain.Category
	Priority              domain.Priority
	Description           string
	IsEmergency           bool
	EmergencyType         domain.EmergencyType
	Status                domain.Status
	ApprovalStatus        domain.ApprovalStatus
	EstimatedCostCents    *int64
	PaymentResponsibility domain.PaymentResponsibility
}

// CompleteParams holds the fields written by the completion transition.
type CompleteParams struct {
	ID          uuid.UUID
	Version     int64
	CompletedAt time.Time
	Rating      *int
	Review      *string
}

// CancelParams holds the fields written by a cancellation.
type CancelParams struct {
	ID          uuid.UUID
	Version     int64
	CancelledBy uuid.UUID
	Reason      string
}

// Repository persists maintenance requests. Every state-changing method takes
// the caller's observed version; a stale version yields a retryable
// concurrency conflict, enforcing single-writer discipline per request.
type Repository interface {
	Create(ctx context.Context, p CreateParams) (Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (Request, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Request, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Request, error)

	// SetApproval writes the approval outcome and the resulting workflow
	// status in one guarded update.
	SetApproval(ctx context.Context, id uuid.UUID, version int64, approval domain.ApprovalStatus, newStatus domain.Status, approvedBy *uuid.UUID, reason *string) (Request, error)

	// OpenBidding moves an approved non-emergency request into bidding.
	OpenBidding(ctx context.Context, id uuid.UUID, version int64) (Request, error)

	// Assign records the provider (and, for bid selections, the winning bid)
	// and moves the request to assigned.
	Assign(ctx context.Context, id uuid.UUID, version int64, providerID uuid.UUID, selectedBidID *uuid.UUID) (Request, error)

	// StartWork moves an assigned request to in_progress.
	StartWork(ctx context.Context, id uuid.UUID, version int64) (Request, error)

	// Complete finishes the request, writing the completion timestamp and any
	// rating supplied by the tenant.
	Complete(ctx context.Context, p CompleteParams) (Request, error)

	// Cancel terminates the request with an actor and reason.
	Cancel(ctx context.Context, p CancelParams) (Request, error)
}
