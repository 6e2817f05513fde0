// Package service implements the bidding marketplace: providers compete on
// approved non-emergency requests, the landlord selects one winner.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"propertyops_backend/internal/bidding/repository"
	"propertyops_backend/internal/bidding/transport"
	"propertyops_backend/internal/events"
	maintdomain "propertyops_backend/internal/maintenance/domain"
	mainttransport "propertyops_backend/internal/maintenance/transport"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

// defaultBidValidity is how long a bid stays selectable when the provider
// does not name an expiry.
const defaultBidValidity = 72 * time.Hour

// RequestReader exposes the request snapshot the marketplace gates on.
type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (mainttransport.RequestResponse, error)
}

// AssignmentRecorder lets the maintenance module publish the assignment
// outcome after the selection transaction has committed.
type AssignmentRecorder interface {
	ApplyBidAssignment(ctx context.Context, requestID, providerID, bidID, selectedBy uuid.UUID)
}

// ProviderGate rejects bids from suspended or banned providers.
type ProviderGate interface {
	CheckEligible(ctx context.Context, providerID uuid.UUID) error
}

// Service provides business logic for the bidding marketplace.
type Service struct {
	repo      repository.Repository
	requests  RequestReader
	assigner  AssignmentRecorder
	providers ProviderGate
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new bidding service.
func New(repo repository.Repository, requests RequestReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, requests: requests, bus: bus, log: log}
}

// SetAssignmentRecorder wires the maintenance module's post-selection hook.
func (s *Service) SetAssignmentRecorder(a AssignmentRecorder) { s.assigner = a }

// SetProviderGate wires the reliability ledger's eligibility check.
func (s *Service) SetProviderGate(g ProviderGate) { s.providers = g }

// SubmitBid places a pending bid. The request must be open for bidding, must
// not be an emergency, and the provider must be in good standing.
func (s *Service) SubmitBid(ctx context.Context, actor httpkit.Identity, requestID uuid.UUID, req transport.SubmitBidRequest) (transport.BidResponse, error) {
	if !actor.HasRole(httpkit.RoleProvider) {
		return transport.BidResponse{}, apperr.Forbidden("only providers may submit bids")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return transport.BidResponse{}, err
	}
	if request.IsEmergency {
		return transport.BidResponse{}, apperr.PolicyViolation("emergency requests are dispatched directly and do not accept bids")
	}
	if request.Status != string(maintdomain.StatusBidding) {
		return transport.BidResponse{}, apperr.PolicyViolation("request is not open for bidding")
	}

	if s.providers != nil {
		if err := s.providers.CheckEligible(ctx, actor.UserID()); err != nil {
			return transport.BidResponse{}, err
		}
	}

	expiresAt := time.Now().UTC().Add(defaultBidValidity)
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(time.Now()) {
			return transport.BidResponse{}, apperr.Validation("bid expiry must be in the future")
		}
		expiresAt = req.ExpiresAt.UTC()
	}

	bid, err := s.repo.Create(ctx, repository.CreateParams{
		RequestID:            requestID,
		ProviderID:           actor.UserID(),
		AmountCents:          req.AmountCents,
		EstimatedDurationMin: req.EstimatedDurationMin,
		Note:                 req.Note,
		ExpiresAt:            expiresAt,
	})
	if err != nil {
		return transport.BidResponse{}, err
	}

	s.bus.Publish(ctx, events.BidSubmitted{
		BaseEvent:   events.NewBaseEvent(),
		BidID:       bid.ID,
		RequestID:   requestID,
		ProviderID:  bid.ProviderID,
		AmountCents: bid.AmountCents,
	})
	return toResponse(bid), nil
}

// WithdrawBid marks the provider's own pending bid as withdrawn.
func (s *Service) WithdrawBid(ctx context.Context, actor httpkit.Identity, bidID uuid.UUID) (transport.BidResponse, error) {
	bid, err := s.repo.Withdraw(ctx, bidID, actor.UserID())
	if err != nil {
		return transport.BidResponse{}, err
	}
	return toResponse(bid), nil
}

// ListBids retrieves all bids on a request, cheapest first.
func (s *Service) ListBids(ctx context.Context, requestID uuid.UUID) (transport.BidListResponse, error) {
	bids, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return transport.BidListResponse{}, err
	}
	return toListResponse(bids), nil
}

// ListMyBids retrieves all bids placed by the calling provider.
func (s *Service) ListMyBids(ctx context.Context, actor httpkit.Identity) (transport.BidListResponse, error) {
	bids, err := s.repo.ListByProvider(ctx, actor.UserID())
	if err != nil {
		return transport.BidListResponse{}, err
	}
	return toListResponse(bids), nil
}

// SelectBid accepts one bid and assigns the request to its provider. The
// repository transaction guarantees at most one accepted bid per request.
func (s *Service) SelectBid(ctx context.Context, actor httpkit.Identity, requestID, bidID uuid.UUID) (transport.BidResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.BidResponse{}, apperr.Forbidden("only a landlord or agency may select bids")
	}

	winner, err := s.repo.SelectBid(ctx, bidID, requestID)
	if err != nil {
		return transport.BidResponse{}, err
	}

	if s.assigner != nil {
		s.assigner.ApplyBidAssignment(ctx, requestID, winner.ProviderID, winner.ID, actor.UserID())
	}
	s.log.Info("bid selected", "request_id", requestID, "bid_id", winner.ID, "provider_id", winner.ProviderID)
	return toResponse(winner), nil
}

func toResponse(b repository.Bid) transport.BidResponse {
	return transport.BidResponse{
		ID:                   b.ID,
		RequestID:            b.RequestID,
		ProviderID:           b.ProviderID,
		AmountCents:          b.AmountCents,
		EstimatedDurationMin: b.EstimatedDurationMin,
		Note:                 b.Note,
		Status:               string(b.Status),
		ExpiresAt:            b.ExpiresAt,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
	}
}

func toListResponse(items []repository.Bid) transport.BidListResponse {
	out := make([]transport.BidResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toResponse(b))
	}
	return transport.BidListResponse{Items: out, Total: len(out)}
}
