package transport

import (
	"time"

	"github.com/google/uuid"
)

// IssuePenaltyRequest records an infraction against a provider.
type IssuePenaltyRequest struct {
	RequestID *uuid.UUID `json:"requestId,omitempty"`
	Type      string     `json:"type" validate:"required,oneof=no_show late quality conduct"`
	Severity  string     `json:"severity" validate:"required,oneof=low medium high"`
	Points    int        `json:"points" validate:"omitempty,min=1,max=100"`
	Reason    string     `json:"reason" validate:"required,min=3,max=1000"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// PenaltyResponse is a recorded penalty.
type PenaltyResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProviderID uuid.UUID  `json:"providerId"`
	RequestID  *uuid.UUID `json:"requestId,omitempty"`
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Points     int        `json:"points"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason"`
	IssuedBy   *uuid.UUID `json:"issuedBy,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// PenaltyListResponse wraps a provider's penalties.
type PenaltyListResponse struct {
	Items []PenaltyResponse `json:"items"`
	Total int               `json:"total"`
}

// ReliabilityResponse is the derived reliability snapshot for a provider.
// Score and status are computed on read, never stored.
type ReliabilityResponse struct {
	ProviderID          uuid.UUID `json:"providerId"`
	TotalJobs           int       `json:"totalJobs"`
	CompletedJobs       int       `json:"completedJobs"`
	CancelledJobs       int       `json:"cancelledJobs"`
	NoShowJobs          int       `json:"noShowJobs"`
	AvgRating           float64   `json:"avgRating"`
	RatingCount         int       `json:"ratingCount"`
	ActivePenaltyPoints int       `json:"activePenaltyPoints"`
	Score               float64   `json:"score"`
	Status              string    `json:"status"`
}
