package transport

import (
	"time"

	"github.com/google/uuid"
)

// OpenDisputeRequest opens a dispute against a maintenance request.
type OpenDisputeRequest struct {
	RequestID    uuid.UUID  `json:"requestId" validate:"required"`
	RespondentID *uuid.UUID `json:"respondentId,omitempty"`
	Type         string     `json:"type" validate:"required,oneof=quality billing damage no_show conduct other"`
	Description  string     `json:"description" validate:"required,min=5,max=4000"`
}

// AdvanceDisputeRequest moves a dispute to the next state.
type AdvanceDisputeRequest struct {
	Status string  `json:"status" validate:"required,oneof=in_review mediation closed"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ResolveDisputeRequest records the resolution outcome.
type ResolveDisputeRequest struct {
	ResolutionNotes   string     `json:"resolutionNotes" validate:"required,min=3,max=4000"`
	CompensationCents *int64     `json:"compensationCents,omitempty" validate:"omitempty,min=0"`
	CompensationTo    *uuid.UUID `json:"compensationTo,omitempty"`
	PenalizeProvider  bool       `json:"penalizeProvider"`
	ProviderID        *uuid.UUID `json:"providerId,omitempty"`
}

// DisputeResponse is the dispute snapshot returned by every command.
type DisputeResponse struct {
	ID                uuid.UUID  `json:"id"`
	RequestID         uuid.UUID  `json:"requestId"`
	InitiatorID       uuid.UUID  `json:"initiatorId"`
	RespondentID      *uuid.UUID `json:"respondentId,omitempty"`
	Type              string     `json:"type"`
	Description       string     `json:"description"`
	Status            string     `json:"status"`
	ResolutionNotes   *string    `json:"resolutionNotes,omitempty"`
	CompensationCents *int64     `json:"compensationCents,omitempty"`
	CompensationTo    *uuid.UUID `json:"compensationTo,omitempty"`
	ResolvedBy        *uuid.UUID `json:"resolvedBy,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// TimelineEntryResponse is one event on the dispute's history.
type TimelineEntryResponse struct {
	ID        uuid.UUID  `json:"id"`
	Event     string     `json:"event"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// DisputeDetailResponse is a dispute with its full timeline.
type DisputeDetailResponse struct {
	Dispute  DisputeResponse         `json:"dispute"`
	Timeline []TimelineEntryResponse `json:"timeline"`
}

// DisputeListResponse wraps a list of disputes.
type DisputeListResponse struct {
	Items []DisputeResponse `json:"items"`
	Total int               `json:"total"`
}
