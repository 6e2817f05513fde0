package transport

import (
	"time"

	"github.com/google/uuid"
)

// SubmitBidRequest is a provider's offer on a request open for bidding.
type SubmitBidRequest struct {
	AmountCents          int64      `json:"amountCents" validate:"required,min=1"`
	EstimatedDurationMin int        `json:"estimatedDurationMin" validate:"required,min=1"`
	Note                 *string    `json:"note,omitempty" validate:"omitempty,max=2000"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
}

// BidResponse is the bid snapshot returned by every command.
type BidResponse struct {
	ID                   uuid.UUID `json:"id"`
	RequestID            uuid.UUID `json:"requestId"`
	ProviderID           uuid.UUID `json:"providerId"`
	AmountCents          int64     `json:"amountCents"`
	EstimatedDurationMin int       `json:"estimatedDurationMin"`
	Note                 *string   `json:"note,omitempty"`
	Status               string    `json:"status"`
	ExpiresAt            time.Time `json:"expiresAt"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// BidListResponse wraps a list of bids.
type BidListResponse struct {
	Items []BidResponse `json:"items"`
	Total int           `json:"total"`
}
