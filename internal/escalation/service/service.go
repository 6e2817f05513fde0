// Package service implements emergency escalation: SLA tracking per emergency
// request, tiered notification rules, and the periodic sweep that raises the
// level when nobody responds in time.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"propertyops_backend/internal/escalation/domain"
	"propertyops_backend/internal/escalation/repository"
	"propertyops_backend/internal/escalation/transport"
	"propertyops_backend/internal/events"
	maintdomain "propertyops_backend/internal/maintenance/domain"
	maintservice "propertyops_backend/internal/maintenance/service"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

// sweepBatchSize bounds how many due records one sweep tick processes.
const sweepBatchSize = 100

// RequestActions is the escalation module's view of the maintenance commands
// a raised tier may trigger.
type RequestActions interface {
	ApproveUpToCeiling(ctx context.Context, requestID uuid.UUID, ceilingCents int64) error
	AssignDirect(ctx context.Context, requestID, providerID uuid.UUID) error
}

// Service provides business logic for emergency escalation.
type Service struct {
	tracking repository.TrackingRepository
	rules    repository.RuleRepository
	requests RequestActions
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new escalation service.
func New(tracking repository.TrackingRepository, rules repository.RuleRepository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{tracking: tracking, rules: rules, bus: bus, log: log}
}

// SetRequestActions wires the maintenance commands. Set after both services
// exist; the modules reference each other through narrow interfaces.
func (s *Service) SetRequestActions(a RequestActions) { s.requests = a }

// OpenTracking starts escalation tracking for a new emergency at level 1.
// A missing level-1 rule is recorded on the tracking record and logged; the
// emergency itself is never rejected over operator configuration.
func (s *Service) OpenTracking(ctx context.Context, requestID, propertyID uuid.UUID, emergencyType maintdomain.EmergencyType) (maintservice.EscalationOpenResult, error) {
	now := time.Now().UTC()
	deadline := domain.Deadline(now, emergencyType)

	rule, ruleErr := s.rules.FindForLevel(ctx, propertyID, string(emergencyType), 1)
	if ruleErr != nil && !apperr.Is(ruleErr, apperr.KindConfiguration) {
		return maintservice.EscalationOpenResult{}, ruleErr
	}

	var parties []string
	if ruleErr == nil {
		parties = rule.Contacts
	}

	t, err := s.tracking.Create(ctx, repository.CreateTrackingParams{
		RequestID:        requestID,
		PropertyID:       propertyID,
		EmergencyType:    string(emergencyType),
		ResponseDeadline: deadline,
		NotifiedParties:  parties,
	})
	if err != nil {
		return maintservice.EscalationOpenResult{}, err
	}

	if ruleErr != nil {
		s.log.ConfigurationError("escalation", ruleErr)
		if err := s.tracking.SetConfigError(ctx, t.ID, ruleErr.Error()); err != nil {
			return maintservice.EscalationOpenResult{}, err
		}
		return maintservice.EscalationOpenResult{TrackingID: t.ID}, nil
	}

	s.bus.Publish(ctx, events.EmergencyOpened{
		BaseEvent:     events.NewBaseEvent(),
		RequestID:     requestID,
		TrackingID:    t.ID,
		EmergencyType: string(emergencyType),
		Deadline:      deadline,
	})
	s.log.EscalationEvent(requestID.String(), 1, "emergency_opened")

	return maintservice.EscalationOpenResult{
		TrackingID:       t.ID,
		DirectProviderID: rule.ProviderID,
	}, nil
}

// RecordResponse stamps the first response, freezing level advancement.
func (s *Service) RecordResponse(ctx context.Context, requestID uuid.UUID) (transport.TrackingResponse, error) {
	t, err := s.tracking.RecordFirstResponse(ctx, requestID, time.Now().UTC())
	if err != nil {
		return transport.TrackingResponse{}, err
	}
	s.log.EscalationEvent(requestID.String(), t.Level, "response_recorded")
	return toTrackingResponse(t), nil
}

// ResolveForRequest closes the tracking record. Idempotent: resolving an
// already-resolved or untracked request is a no-op.
func (s *Service) ResolveForRequest(ctx context.Context, requestID uuid.UUID) error {
	t, resolved, err := s.tracking.Resolve(ctx, requestID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !resolved {
		return nil
	}

	minutes := 0
	if t.ResolutionMinutes != nil {
		minutes = *t.ResolutionMinutes
	}
	s.bus.Publish(ctx, events.EmergencyResolved{
		BaseEvent:         events.NewBaseEvent(),
		RequestID:         requestID,
		TrackingID:        t.ID,
		ResolutionMinutes: minutes,
	})
	s.log.EscalationEvent(requestID.String(), t.Level, "emergency_resolved")
	return nil
}

// CancelForRequest closes tracking for a cancelled emergency. Idempotent.
func (s *Service) CancelForRequest(ctx context.Context, requestID uuid.UUID) error {
	_, _, err := s.tracking.Resolve(ctx, requestID, time.Now().UTC())
	return err
}

// EscalateDue processes every tracking record whose deadline has passed
// without a response. Called by the scheduler sweep. Returns how many records
// were advanced.
func (s *Service) EscalateDue(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	due, err := s.tracking.ListDue(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, t := range due {
		if err := ctx.Err(); err != nil {
			return raised, err
		}
		if s.escalateOne(ctx, t, now) {
			raised++
		}
	}
	return raised, nil
}

// escalateOne advances a single record one level. Failures affect only this
// record; the sweep moves on and retries next tick.
func (s *Service) escalateOne(ctx context.Context, t repository.Tracking, now time.Time) bool {
	if !domain.CanRaise(t.Level) {
		// Top tier reached: re-arm the deadline so the record stops
		// reappearing every tick, but keep it open until someone responds.
		emergencyType := maintdomain.EmergencyType(t.EmergencyType)
		if err := s.tracking.SetDeadline(ctx, t.RequestID, domain.Deadline(now, emergencyType)); err != nil {
			s.log.Error("failed to re-arm escalation deadline", "request_id", t.RequestID, "error", err)
		}
		s.log.EscalationEvent(t.RequestID.String(), t.Level, "max_level_renotify")
		return false
	}

	nextLevel := t.Level + 1
	rule, err := s.rules.FindForLevel(ctx, t.PropertyID, t.EmergencyType, nextLevel)
	if err != nil {
		if apperr.Is(err, apperr.KindConfiguration) {
			s.log.ConfigurationError("escalation", err)
			if setErr := s.tracking.SetConfigError(ctx, t.ID, err.Error()); setErr != nil {
				s.log.Error("failed to record escalation config error", "tracking_id", t.ID, "error", setErr)
			}
			return false
		}
		s.log.Error("failed to resolve escalation rule", "tracking_id", t.ID, "error", err)
		return false
	}

	emergencyType := maintdomain.EmergencyType(t.EmergencyType)
	updated, err := s.tracking.Raise(ctx, repository.RaiseParams{
		ID:              t.ID,
		FromLevel:       t.Level,
		NewDeadline:     domain.Deadline(now, emergencyType),
		NotifiedParties: appendParties(t.NotifiedParties, rule.Contacts),
	})
	if err != nil {
		// A concurrent response or resolution winning the race is expected.
		if !apperr.IsRetryable(err) {
			s.log.Error("failed to raise escalation level", "tracking_id", t.ID, "error", err)
		}
		return false
	}

	s.bus.Publish(ctx, events.EscalationLevelRaised{
		BaseEvent:       events.NewBaseEvent(),
		RequestID:       t.RequestID,
		TrackingID:      t.ID,
		Level:           updated.Level,
		NotifiedParties: rule.Contacts,
		NewDeadline:     updated.ResponseDeadline,
	})
	s.log.EscalationEvent(t.RequestID.String(), updated.Level, "level_raised")

	if s.requests != nil {
		if rule.MaxCostAuthorizationCents > 0 {
			if err := s.requests.ApproveUpToCeiling(ctx, t.RequestID, rule.MaxCostAuthorizationCents); err != nil {
				s.log.Error("escalation cost authorization failed", "request_id", t.RequestID, "error", err)
			}
		}
		if rule.ProviderID != nil {
			if err := s.requests.AssignDirect(ctx, t.RequestID, *rule.ProviderID); err != nil {
				// The request may have moved past approved already; only
				// unexpected failures are worth logging.
				if !apperr.Is(err, apperr.KindIllegalTransition) && !apperr.Is(err, apperr.KindPolicyViolation) {
					s.log.Error("escalation direct dispatch failed", "request_id", t.RequestID, "error", err)
				}
			} else if _, err := s.tracking.RecordFirstResponse(ctx, t.RequestID, now); err != nil {
				s.log.Error("failed to record dispatch response", "request_id", t.RequestID, "error", err)
			}
		}
	}
	return true
}

// GetByRequest retrieves the tracking record for a request.
func (s *Service) GetByRequest(ctx context.Context, requestID uuid.UUID) (transport.TrackingResponse, error) {
	t, err := s.tracking.GetByRequest(ctx, requestID)
	if err != nil {
		return transport.TrackingResponse{}, err
	}
	return toTrackingResponse(t), nil
}

// UpsertRule creates or replaces an escalation tier for a property.
func (s *Service) UpsertRule(ctx context.Context, actor httpkit.Identity, propertyID uuid.UUID, req transport.UpsertRuleRequest) (transport.RuleResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.RuleResponse{}, apperr.Forbidden("only a landlord or agency may manage escalation rules")
	}

	rule, err := s.rules.Upsert(ctx, repository.RuleUpsertParams{
		PropertyID:                propertyID,
		TriggerCondition:          req.TriggerCondition,
		Level:                     req.Level,
		Contacts:                  req.Contacts,
		ProviderID:                req.ProviderID,
		MaxCostAuthorizationCents: req.MaxCostAuthorizationCents,
	})
	if err != nil {
		return transport.RuleResponse{}, err
	}
	return toRuleResponse(rule), nil
}

// DeleteRule removes an escalation rule.
func (s *Service) DeleteRule(ctx context.Context, actor httpkit.Identity, id uuid.UUID) error {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return apperr.Forbidden("only a landlord or agency may manage escalation rules")
	}
	return s.rules.Delete(ctx, id)
}

// ListRules retrieves a property's escalation rules ordered by level.
func (s *Service) ListRules(ctx context.Context, propertyID uuid.UUID) (transport.RuleListResponse, error) {
	rules, err := s.rules.ListByProperty(ctx, propertyID)
	if err != nil {
		return transport.RuleListResponse{}, err
	}

	out := make([]transport.RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, toRuleResponse(r))
	}
	return transport.RuleListResponse{Items: out, Total: len(out)}, nil
}

// appendParties merges new contacts into the notification history without
// duplicates, preserving order.
func appendParties(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, p := range existing {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, p := range added {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func toTrackingResponse(t repository.Tracking) transport.TrackingResponse {
	return transport.TrackingResponse{
		ID:                t.ID,
		RequestID:         t.RequestID,
		PropertyID:        t.PropertyID,
		EmergencyType:     t.EmergencyType,
		Level:             t.Level,
		ResponseDeadline:  t.ResponseDeadline,
		NotifiedParties:   t.NotifiedParties,
		FirstResponseAt:   t.FirstResponseAt,
		Resolved:          t.Resolved,
		ResolvedAt:        t.ResolvedAt,
		ResolutionMinutes: t.ResolutionMinutes,
		ConfigError:       t.ConfigError,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func toRuleResponse(r repository.Rule) transport.RuleResponse {
	return transport.RuleResponse{
		ID:                        r.ID,
		PropertyID:                r.PropertyID,
		TriggerCondition:          r.TriggerCondition,
		Level:                     r.Level,
		Contacts:                  r.Contacts,
		ProviderID:                r.ProviderID,
		MaxCostAuthorizationCents: r.MaxCostAuthorizationCents,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
	}
}
