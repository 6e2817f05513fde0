// Package service implements the provider reliability ledger: job counters
// fed by workflow events, penalties with an appeal lifecycle, and the derived
// score gating marketplace participation.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"propertyops_backend/internal/events"
	"propertyops_backend/internal/providers/domain"
	"propertyops_backend/internal/providers/repository"
	"propertyops_backend/internal/providers/transport"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

// defaultPoints assigns the standard point weight per penalty type when the
// issuer does not override it.
var defaultPoints = map[string]int{
	"no_show": 20,
	"late":    10,
	"quality": 15,
	"conduct": 25,
}

// Service provides business logic for the reliability ledger.
type Service struct {
	reliability repository.ReliabilityRepository
	penalties   repository.PenaltyRepository
	bus         events.Bus
	log         *logger.Logger
}

// New creates a new providers service.
func New(reliability repository.ReliabilityRepository, penalties repository.PenaltyRepository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{reliability: reliability, penalties: penalties, bus: bus, log: log}
}

// GetReliability computes the current reliability snapshot for a provider.
func (s *Service) GetReliability(ctx context.Context, providerID uuid.UUID) (transport.ReliabilityResponse, error) {
	row, err := s.reliability.Get(ctx, providerID)
	if err != nil {
		return transport.ReliabilityResponse{}, err
	}
	points, err := s.penalties.ActivePoints(ctx, providerID)
	if err != nil {
		return transport.ReliabilityResponse{}, err
	}

	score := domain.Score(row.Counters, points)
	return transport.ReliabilityResponse{
		ProviderID:          providerID,
		TotalJobs:           row.Counters.TotalJobs,
		CompletedJobs:       row.Counters.CompletedJobs,
		CancelledJobs:       row.Counters.CancelledJobs,
		NoShowJobs:          row.Counters.NoShowJobs,
		AvgRating:           row.Counters.AvgRating(),
		RatingCount:         row.Counters.RatingCount,
		ActivePenaltyPoints: points,
		Score:               score,
		Status:              string(domain.StatusForScore(score)),
	}, nil
}

// CheckEligible rejects providers whose derived standing bars them from
// taking work.
func (s *Service) CheckEligible(ctx context.Context, providerID uuid.UUID) error {
	row, err := s.reliability.Get(ctx, providerID)
	if err != nil {
		return err
	}
	points, err := s.penalties.ActivePoints(ctx, providerID)
	if err != nil {
		return err
	}

	status := domain.StatusForScore(domain.Score(row.Counters, points))
	if !domain.Eligible(status) {
		return apperr.PolicyViolation("provider is " + string(status) + " and may not take new work")
	}
	return nil
}

// IssuePenalty records an infraction. A no-show penalty also counts toward
// the no-show job counter feeding the rate component of the score.
func (s *Service) IssuePenalty(ctx context.Context, actor httpkit.Identity, providerID uuid.UUID, req transport.IssuePenaltyRequest) (transport.PenaltyResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.PenaltyResponse{}, apperr.Forbidden("only a landlord or agency may issue penalties")
	}

	points := req.Points
	if points == 0 {
		points = defaultPoints[req.Type]
	}
	if points == 0 {
		return transport.PenaltyResponse{}, apperr.Validation("penalty points are required for this type")
	}

	before, err := s.currentStatus(ctx, providerID)
	if err != nil {
		return transport.PenaltyResponse{}, err
	}

	actorID := actor.UserID()
	penalty, err := s.penalties.Create(ctx, repository.CreatePenaltyParams{
		ProviderID: providerID,
		RequestID:  req.RequestID,
		Type:       req.Type,
		Severity:   req.Severity,
		Points:     points,
		Reason:     req.Reason,
		IssuedBy:   &actorID,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		return transport.PenaltyResponse{}, err
	}

	if req.Type == "no_show" {
		if err := s.reliability.IncrementNoShow(ctx, providerID); err != nil {
			s.log.Error("failed to count no-show", "provider_id", providerID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.PenaltyIssued{
		BaseEvent:  events.NewBaseEvent(),
		PenaltyID:  penalty.ID,
		ProviderID: providerID,
		RequestID:  req.RequestID,
		Type:       penalty.Type,
		Points:     penalty.Points,
	})
	s.announceStatusChange(ctx, providerID, before)

	return toPenaltyResponse(penalty), nil
}

// AppealPenalty lets the penalized provider contest an active penalty. The
// points stop counting while the appeal is pending; upholding the appeal
// restores them.
func (s *Service) AppealPenalty(ctx context.Context, actor httpkit.Identity, penaltyID uuid.UUID) (transport.PenaltyResponse, error) {
	current, err := s.penalties.GetByID(ctx, penaltyID)
	if err != nil {
		return transport.PenaltyResponse{}, err
	}
	if current.ProviderID != actor.UserID() {
		return transport.PenaltyResponse{}, apperr.Forbidden("only the penalized provider may appeal")
	}

	before, err := s.currentStatus(ctx, current.ProviderID)
	if err != nil {
		return transport.PenaltyResponse{}, err
	}

	penalty, err := s.penalties.SetStatus(ctx, penaltyID, repository.PenaltyActive, repository.PenaltyAppealed)
	if err != nil {
		return transport.PenaltyResponse{}, err
	}

	s.announceStatusChange(ctx, penalty.ProviderID, before)
	return toPenaltyResponse(penalty), nil
}

// DecideAppeal resolves an appeal: overturning removes the points, upholding
// returns the penalty to active.
func (s *Service) DecideAppeal(ctx context.Context, actor httpkit.Identity, penaltyID uuid.UUID, overturn bool) (transport.PenaltyResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.PenaltyResponse{}, apperr.Forbidden("only a landlord or agency may decide appeals")
	}

	target := repository.PenaltyActive
	if overturn {
		target = repository.PenaltyOverturned
	}

	current, err := s.penalties.GetByID(ctx, penaltyID)
	if err != nil {
		return transport.PenaltyResponse{}, err
	}
	before, err := s.currentStatus(ctx, current.ProviderID)
	if err != nil {
		return transport.PenaltyResponse{}, err
	}

	penalty, err := s.penalties.SetStatus(ctx, penaltyID, repository.PenaltyAppealed, target)
	if err != nil {
		return transport.PenaltyResponse{}, err
	}

	s.announceStatusChange(ctx, penalty.ProviderID, before)
	return toPenaltyResponse(penalty), nil
}

// ListPenalties retrieves all penalties against a provider.
func (s *Service) ListPenalties(ctx context.Context, providerID uuid.UUID) (transport.PenaltyListResponse, error) {
	penalties, err := s.penalties.ListByProvider(ctx, providerID)
	if err != nil {
		return transport.PenaltyListResponse{}, err
	}

	out := make([]transport.PenaltyResponse, 0, len(penalties))
	for _, p := range penalties {
		out = append(out, toPenaltyResponse(p))
	}
	return transport.PenaltyListResponse{Items: out, Total: len(out)}, nil
}

// ExpireDuePenalties flips penalties past their expiry, letting scores
// recover. Called by the scheduler sweep.
func (s *Service) ExpireDuePenalties(ctx context.Context) (int, error) {
	return s.penalties.ExpireDue(ctx, time.Now().UTC())
}

// RecordAssignment counts a new assignment. Event-driven.
func (s *Service) RecordAssignment(ctx context.Context, providerID uuid.UUID) error {
	return s.reliability.IncrementAssigned(ctx, providerID)
}

// RecordCompletion counts a completion and its rating. Event-driven.
func (s *Service) RecordCompletion(ctx context.Context, providerID uuid.UUID, rating *int) error {
	before, err := s.currentStatus(ctx, providerID)
	if err != nil {
		return err
	}
	if err := s.reliability.IncrementCompleted(ctx, providerID, rating); err != nil {
		return err
	}
	s.announceStatusChange(ctx, providerID, before)
	return nil
}

// RecordProviderFaultCancellation counts a cancellation the assigned provider
// caused. Event-driven.
func (s *Service) RecordProviderFaultCancellation(ctx context.Context, providerID uuid.UUID) error {
	before, err := s.currentStatus(ctx, providerID)
	if err != nil {
		return err
	}
	if err := s.reliability.IncrementCancelled(ctx, providerID); err != nil {
		return err
	}
	s.announceStatusChange(ctx, providerID, before)
	return nil
}

// currentStatus computes the derived standing right now.
func (s *Service) currentStatus(ctx context.Context, providerID uuid.UUID) (domain.Status, error) {
	row, err := s.reliability.Get(ctx, providerID)
	if err != nil {
		return "", err
	}
	points, err := s.penalties.ActivePoints(ctx, providerID)
	if err != nil {
		return "", err
	}
	return domain.StatusForScore(domain.Score(row.Counters, points)), nil
}

// announceStatusChange publishes a threshold crossing. The status itself is
// never stored; the event only tells interested parties that it moved.
func (s *Service) announceStatusChange(ctx context.Context, providerID uuid.UUID, before domain.Status) {
	row, err := s.reliability.Get(ctx, providerID)
	if err != nil {
		s.log.Error("failed to recompute provider status", "provider_id", providerID, "error", err)
		return
	}
	points, err := s.penalties.ActivePoints(ctx, providerID)
	if err != nil {
		s.log.Error("failed to recompute provider status", "provider_id", providerID, "error", err)
		return
	}

	score := domain.Score(row.Counters, points)
	after := domain.StatusForScore(score)
	if after == before {
		return
	}

	s.bus.Publish(ctx, events.ProviderStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		ProviderID: providerID,
		OldStatus:  string(before),
		NewStatus:  string(after),
		Score:      score,
	})
	s.log.Warn("provider status changed",
		"provider_id", providerID, "old", string(before), "new", string(after), "score", score)
}

func toPenaltyResponse(p repository.Penalty) transport.PenaltyResponse {
	return transport.PenaltyResponse{
		ID:         p.ID,
		ProviderID: p.ProviderID,
		RequestID:  p.RequestID,
		Type:       p.Type,
		Severity:   p.Severity,
		Points:     p.Points,
		Status:     string(p.Status),
		Reason:     p.Reason,
		IssuedBy:   p.IssuedBy,
		ExpiresAt:  p.ExpiresAt,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
