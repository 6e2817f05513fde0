// Package service implements the dispute resolution workspace: a small state
// machine with an append-only timeline, compensation outcomes, and the hook
// into the provider reliability ledger.
package service

import (
	"context"

	"github.com/google/uuid"

	"propertyops_backend/internal/disputes/domain"
	"propertyops_backend/internal/disputes/repository"
	"propertyops_backend/internal/disputes/transport"
	"propertyops_backend/internal/events"
	mainttransport "propertyops_backend/internal/maintenance/transport"
	provtransport "propertyops_backend/internal/providers/transport"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

// RequestReader verifies the disputed request exists.
type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (mainttransport.RequestResponse, error)
}

// PenaltyIssuer feeds provider-fault resolutions into the reliability ledger.
type PenaltyIssuer interface {
	IssuePenalty(ctx context.Context, actor httpkit.Identity, providerID uuid.UUID, req provtransport.IssuePenaltyRequest) (provtransport.PenaltyResponse, error)
}

// Service provides business logic for disputes.
type Service struct {
	repo      repository.Repository
	requests  RequestReader
	penalties PenaltyIssuer
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new disputes service.
func New(repo repository.Repository, requests RequestReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, requests: requests, bus: bus, log: log}
}

// SetPenaltyIssuer wires the reliability ledger.
func (s *Service) SetPenaltyIssuer(p PenaltyIssuer) { s.penalties = p }

// Open creates a dispute against an existing request. Any party to the
// request may open one, in any request state after submission.
func (s *Service) Open(ctx context.Context, actor httpkit.Identity, req transport.OpenDisputeRequest) (transport.DisputeResponse, error) {
	if _, err := s.requests.GetByID(ctx, req.RequestID); err != nil {
		return transport.DisputeResponse{}, err
	}

	d, err := s.repo.Create(ctx, repository.CreateParams{
		RequestID:    req.RequestID,
		InitiatorID:  actor.UserID(),
		RespondentID: req.RespondentID,
		Type:         domain.Type(req.Type),
		Description:  req.Description,
	})
	if err != nil {
		return transport.DisputeResponse{}, err
	}

	s.bus.Publish(ctx, events.DisputeOpened{
		BaseEvent:   events.NewBaseEvent(),
		DisputeID:   d.ID,
		RequestID:   d.RequestID,
		InitiatorID: d.InitiatorID,
		Type:        string(d.Type),
	})
	return toResponse(d), nil
}

// Advance moves a dispute to the requested next state. Initiators may
// withdraw their own open dispute; review and mediation steps belong to
// landlords and agencies.
func (s *Service) Advance(ctx context.Context, actor httpkit.Identity, disputeID uuid.UUID, req transport.AdvanceDisputeRequest) (transport.DisputeResponse, error) {
	current, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return transport.DisputeResponse{}, err
	}

	target := domain.Status(req.Status)
	if !domain.CanTransition(current.Status, target) {
		return transport.DisputeResponse{}, apperr.IllegalTransition(string(current.Status), string(target))
	}

	withdrawal := current.Status == domain.StatusOpen && target == domain.StatusClosed
	if withdrawal {
		if current.InitiatorID != actor.UserID() && !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
			return transport.DisputeResponse{}, apperr.Forbidden("only the initiator may withdraw a dispute")
		}
	} else if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.DisputeResponse{}, apperr.Forbidden("only a landlord or agency may advance disputes")
	}

	d, err := s.repo.Transition(ctx, repository.TransitionParams{
		ID:      disputeID,
		From:    current.Status,
		To:      target,
		Event:   transitionEvent(current.Status, target),
		ActorID: actor.UserID(),
		Notes:   req.Notes,
	})
	if err != nil {
		return transport.DisputeResponse{}, err
	}
	return toResponse(d), nil
}

// Resolve records the resolution outcome. Compensation needs a beneficiary,
// and provider-fault resolutions feed the reliability ledger.
func (s *Service) Resolve(ctx context.Context, actor httpkit.Identity, disputeID uuid.UUID, req transport.ResolveDisputeRequest) (transport.DisputeResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.DisputeResponse{}, apperr.Forbidden("only a landlord or agency may resolve disputes")
	}
	if req.CompensationCents != nil && req.CompensationTo == nil {
		return transport.DisputeResponse{}, apperr.Validation("compensation requires a beneficiary")
	}

	current, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return transport.DisputeResponse{}, err
	}
	if !domain.CanTransition(current.Status, domain.StatusResolved) {
		return transport.DisputeResponse{}, apperr.IllegalTransition(string(current.Status), string(domain.StatusResolved))
	}

	d, err := s.repo.Resolve(ctx, repository.ResolveParams{
		ID:                disputeID,
		From:              current.Status,
		ResolutionNotes:   req.ResolutionNotes,
		CompensationCents: req.CompensationCents,
		CompensationTo:    req.CompensationTo,
		ResolvedBy:        actor.UserID(),
	})
	if err != nil {
		return transport.DisputeResponse{}, err
	}

	if req.PenalizeProvider {
		s.penalizeProvider(ctx, actor, d, req.ProviderID)
	}

	s.bus.Publish(ctx, events.DisputeResolved{
		BaseEvent:         events.NewBaseEvent(),
		DisputeID:         d.ID,
		RequestID:         d.RequestID,
		CompensationCents: d.CompensationCents,
		CompensationTo:    d.CompensationTo,
	})
	return toResponse(d), nil
}

// penalizeProvider issues the ledger penalty for a provider-fault
// resolution. A failure here never rolls back the resolution.
func (s *Service) penalizeProvider(ctx context.Context, actor httpkit.Identity, d repository.Dispute, explicit *uuid.UUID) {
	if s.penalties == nil {
		s.log.Error("penalty issuer not wired", "dispute_id", d.ID)
		return
	}
	if !domain.PenaltyWorthy(d.Type) {
		s.log.Warn("dispute type does not carry a penalty", "dispute_id", d.ID, "type", string(d.Type))
		return
	}

	providerID := explicit
	if providerID == nil {
		providerID = d.RespondentID
	}
	if providerID == nil {
		s.log.Warn("no provider to penalize", "dispute_id", d.ID)
		return
	}

	_, err := s.penalties.IssuePenalty(ctx, actor, *providerID, provtransport.IssuePenaltyRequest{
		RequestID: &d.RequestID,
		Type:      penaltyType(d.Type),
		Severity:  "medium",
		Reason:    "dispute resolved against provider: " + *d.ResolutionNotes,
	})
	if err != nil {
		s.log.Error("failed to issue dispute penalty", "dispute_id", d.ID, "provider_id", *providerID, "error", err)
	}
}

// Get retrieves a dispute with its full timeline.
func (s *Service) Get(ctx context.Context, disputeID uuid.UUID) (transport.DisputeDetailResponse, error) {
	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return transport.DisputeDetailResponse{}, err
	}
	timeline, err := s.repo.Timeline(ctx, disputeID)
	if err != nil {
		return transport.DisputeDetailResponse{}, err
	}

	entries := make([]transport.TimelineEntryResponse, 0, len(timeline))
	for _, e := range timeline {
		entries = append(entries, transport.TimelineEntryResponse{
			ID:        e.ID,
			Event:     e.Event,
			ActorID:   e.ActorID,
			Notes:     e.Notes,
			CreatedAt: e.CreatedAt,
		})
	}
	return transport.DisputeDetailResponse{Dispute: toResponse(d), Timeline: entries}, nil
}

// ListByRequest retrieves all disputes on a request.
func (s *Service) ListByRequest(ctx context.Context, requestID uuid.UUID) (transport.DisputeListResponse, error) {
	disputes, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return transport.DisputeListResponse{}, err
	}

	out := make([]transport.DisputeResponse, 0, len(disputes))
	for _, d := range disputes {
		out = append(out, toResponse(d))
	}
	return transport.DisputeListResponse{Items: out, Total: len(out)}, nil
}

func transitionEvent(from, to domain.Status) string {
	switch to {
	case domain.StatusInReview:
		return "review_started"
	case domain.StatusMediation:
		return "mediation_started"
	case domain.StatusClosed:
		if from == domain.StatusOpen {
			return "withdrawn"
		}
		return "closed"
	default:
		return string(to)
	}
}

func penaltyType(t domain.Type) string {
	switch t {
	case domain.TypeNoShow:
		return "no_show"
	case domain.TypeConduct:
		return "conduct"
	default:
		return "quality"
	}
}

func toResponse(d repository.Dispute) transport.DisputeResponse {
	return transport.DisputeResponse{
		ID:                d.ID,
		RequestID:         d.RequestID,
		InitiatorID:       d.InitiatorID,
		RespondentID:      d.RespondentID,
		Type:              string(d.Type),
		Description:       d.Description,
		Status:            string(d.Status),
		ResolutionNotes:   d.ResolutionNotes,
		CompensationCents: d.CompensationCents,
		CompensationTo:    d.CompensationTo,
		ResolvedBy:        d.ResolvedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}
