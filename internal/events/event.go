// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"propertyops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Maintenance Request Events
// =============================================================================

// RequestSubmitted is published when a tenant submits a maintenance request.
type RequestSubmitted struct {
	BaseEvent
	RequestID   uuid.UUID `json:"requestId"`
	PropertyID  uuid.UUID `json:"propertyId"`
	TenantID    uuid.UUID `json:"tenantId"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	IsEmergency bool      `json:"isEmergency"`
}

func (e RequestSubmitted) EventName() string { return "maintenance.request.submitted" }

// RequestApproved is published when a request passes approval, whether
// automatically or by a landlord action.
type RequestApproved struct {
	BaseEvent
	RequestID  uuid.UUID  `json:"requestId"`
	PropertyID uuid.UUID  `json:"propertyId"`
	Auto       bool       `json:"auto"`
	ApprovedBy *uuid.UUID `json:"approvedBy,omitempty"`
}

func (e RequestApproved) EventName() string { return "maintenance.request.approved" }

// RequestDenied is published when a landlord denies a request.
type RequestDenied struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	DeniedBy  uuid.UUID `json:"deniedBy"`
	Reason    string    `json:"reason"`
}

func (e RequestDenied) EventName() string { return "maintenance.request.denied" }

// RequestAssigned is published when a provider is assigned, either through
// bid selection or emergency direct dispatch.
type RequestAssigned struct {
	BaseEvent
	RequestID  uuid.UUID `json:"requestId"`
	ProviderID uuid.UUID `json:"providerId"`
	Source     string    `json:"source"` // "bid_selection" or "direct_dispatch"
}

func (e RequestAssigned) EventName() string { return "maintenance.request.assigned" }

// WorkStarted is published when the assigned provider starts work.
type WorkStarted struct {
	BaseEvent
	RequestID  uuid.UUID `json:"requestId"`
	ProviderID uuid.UUID `json:"providerId"`
}

func (e WorkStarted) EventName() string { return "maintenance.work.started" }

// RequestCompleted is published when a request reaches completion.
type RequestCompleted struct {
	BaseEvent
	RequestID  uuid.UUID  `json:"requestId"`
	ProviderID *uuid.UUID `json:"providerId,omitempty"`
	Rating     *int       `json:"rating,omitempty"`
}

func (e RequestCompleted) EventName() string { return "maintenance.request.completed" }

// RequestCancelled is published when a request is cancelled from any
// non-terminal state. ProviderFault is set when the assigned provider
// initiated the cancellation, which feeds the reliability ledger.
type RequestCancelled struct {
	BaseEvent
	RequestID     uuid.UUID  `json:"requestId"`
	CancelledBy   uuid.UUID  `json:"cancelledBy"`
	ActorRole     string     `json:"actorRole"`
	Reason        string     `json:"reason"`
	ProviderID    *uuid.UUID `json:"providerId,omitempty"`
	ProviderFault bool       `json:"providerFault"`
}

func (e RequestCancelled) EventName() string { return "maintenance.request.cancelled" }

// =============================================================================
// Bidding Events
// =============================================================================

// BidSubmitted is published when a provider places a bid.
type BidSubmitted struct {
	BaseEvent
	BidID       uuid.UUID `json:"bidId"`
	RequestID   uuid.UUID `json:"requestId"`
	ProviderID  uuid.UUID `json:"providerId"`
	AmountCents int64     `json:"amountCents"`
}

func (e BidSubmitted) EventName() string { return "bidding.bid.submitted" }

// BidSelected is published when the landlord selects a winning bid.
type BidSelected struct {
	BaseEvent
	BidID      uuid.UUID `json:"bidId"`
	RequestID  uuid.UUID `json:"requestId"`
	ProviderID uuid.UUID `json:"providerId"`
	SelectedBy uuid.UUID `json:"selectedBy"`
}

func (e BidSelected) EventName() string { return "bidding.bid.selected" }

// =============================================================================
// Escalation Events
// =============================================================================

// EmergencyOpened is published when a request is classified as an emergency
// and escalation tracking begins.
type EmergencyOpened struct {
	BaseEvent
	RequestID     uuid.UUID `json:"requestId"`
	TrackingID    uuid.UUID `json:"trackingId"`
	EmergencyType string    `json:"emergencyType"`
	Deadline      time.Time `json:"deadline"`
}

func (e EmergencyOpened) EventName() string { return "escalation.emergency.opened" }

// EscalationLevelRaised is published each time the sweep advances an
// unanswered emergency to the next level.
type EscalationLevelRaised struct {
	BaseEvent
	RequestID       uuid.UUID `json:"requestId"`
	TrackingID      uuid.UUID `json:"trackingId"`
	Level           int       `json:"level"`
	NotifiedParties []string  `json:"notifiedParties"`
	NewDeadline     time.Time `json:"newDeadline"`
}

func (e EscalationLevelRaised) EventName() string { return "escalation.level.raised" }

// EmergencyResolved is published when an emergency is resolved.
type EmergencyResolved struct {
	BaseEvent
	RequestID         uuid.UUID `json:"requestId"`
	TrackingID        uuid.UUID `json:"trackingId"`
	ResolutionMinutes int       `json:"resolutionMinutes"`
}

func (e EmergencyResolved) EventName() string { return "escalation.emergency.resolved" }

// =============================================================================
// Provider Ledger Events
// =============================================================================

// PenaltyIssued is published when a penalty is recorded against a provider.
type PenaltyIssued struct {
	BaseEvent
	PenaltyID  uuid.UUID  `json:"penaltyId"`
	ProviderID uuid.UUID  `json:"providerId"`
	RequestID  *uuid.UUID `json:"requestId,omitempty"`
	Type       string     `json:"type"`
	Points     int        `json:"points"`
}

func (e PenaltyIssued) EventName() string { return "providers.penalty.issued" }

// ProviderStatusChanged is published when a provider's derived status crosses
// a threshold (e.g. into suspended). The status itself is always recomputed
// from the score; this event only announces the crossing.
type ProviderStatusChanged struct {
	BaseEvent
	ProviderID uuid.UUID `json:"providerId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	Score      float64   `json:"score"`
}

func (e ProviderStatusChanged) EventName() string { return "providers.status.changed" }

// =============================================================================
// Dispute Events
// =============================================================================

// DisputeOpened is published when a dispute is opened against a request.
type DisputeOpened struct {
	BaseEvent
	DisputeID   uuid.UUID `json:"disputeId"`
	RequestID   uuid.UUID `json:"requestId"`
	InitiatorID uuid.UUID `json:"initiatorId"`
	Type        string    `json:"type"`
}

func (e DisputeOpened) EventName() string { return "disputes.dispute.opened" }

// DisputeResolved is published when a dispute reaches resolution.
type DisputeResolved struct {
	BaseEvent
	DisputeID         uuid.UUID  `json:"disputeId"`
	RequestID         uuid.UUID  `json:"requestId"`
	CompensationCents *int64     `json:"compensationCents,omitempty"`
	CompensationTo    *uuid.UUID `json:"compensationTo,omitempty"`
}

func (e DisputeResolved) EventName() string { return "disputes.dispute.resolved" }

// =============================================================================
// Notification Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// message is due for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }

// =============================================================================
// Photo Events
// =============================================================================

// PhotoVerified is published when a reviewer verifies or rejects a photo.
type PhotoVerified struct {
	BaseEvent
	PhotoID   uuid.UUID `json:"photoId"`
	RequestID uuid.UUID `json:"requestId"`
	Status    string    `json:"status"`
}

func (e PhotoVerified) EventName() string { return "photos.photo.verified" }
