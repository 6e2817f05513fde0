// Package service implements the maintenance request commands: submission,
// approval routing, assignment, execution tracking, and the photo-gated
// completion. It owns the request state machine; bidding and escalation feed
// it assignment decisions.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"propertyops_backend/internal/events"
	"propertyops_backend/internal/maintenance/domain"
	"propertyops_backend/internal/maintenance/repository"
	"propertyops_backend/internal/maintenance/transport"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

// PolicyReader resolves the property policy the engine consumes. Policies are
// always passed explicitly into the routing logic, never read ambiently.
type PolicyReader interface {
	GetPolicyView(ctx context.Context, propertyID uuid.UUID) (domain.PolicyView, error)
}

// PhotoEvidenceReader answers whether verified completion evidence exists.
type PhotoEvidenceReader interface {
	HasVerifiedCompletionPhoto(ctx context.Context, requestID uuid.UUID) (bool, error)
}

// EscalationOpenResult is what the escalation module hands back when an
// emergency is opened: the tracking record and, when a level-1 rule names a
// provider, a direct-dispatch decision that short-circuits bidding.
type EscalationOpenResult struct {
	TrackingID       uuid.UUID
	DirectProviderID *uuid.UUID
}

// Escalations is the maintenance module's view of the escalation scheduler.
type Escalations interface {
	OpenTracking(ctx context.Context, requestID, propertyID uuid.UUID, emergencyType domain.EmergencyType) (EscalationOpenResult, error)
	ResolveForRequest(ctx context.Context, requestID uuid.UUID) error
	CancelForRequest(ctx context.Context, requestID uuid.UUID) error
}

// Service provides business logic for maintenance requests.
type Service struct {
	repo        repository.Repository
	policies    PolicyReader
	photos      PhotoEvidenceReader
	escalations Escalations
	bus         events.Bus
	log         *logger.Logger
}

// New creates a new maintenance service.
func New(repo repository.Repository, policies PolicyReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, policies: policies, bus: bus, log: log}
}

// SetPhotoEvidenceReader wires the photo verification gate.
func (s *Service) SetPhotoEvidenceReader(r PhotoEvidenceReader) { s.photos = r }

// SetEscalations wires the emergency escalation scheduler.
func (s *Service) SetEscalations(e Escalations) { s.escalations = e }

// Submit classifies the raw request, routes it through the approval decision
// table, and creates it in the resulting state. Emergencies additionally open
// escalation tracking and may be direct-dispatched to a provider.
func (s *Service) Submit(ctx context.Context, actor httpkit.Identity, req transport.SubmitRequestRequest) (transport.RequestResponse, error) {
	classification := domain.Classify(domain.ClassifyInput{
		Category:        domain.Category(req.Category),
		Description:     req.Description,
		DeclaredUrgency: domain.Priority(req.DeclaredUrgency),
	})

	policy, err := s.policies.GetPolicyView(ctx, req.PropertyID)
	if err != nil {
		return transport.RequestResponse{}, err
	}

	approval := domain.RouteApproval(classification, req.EstimatedCostCents, policy)

	status := domain.StatusSubmitted
	if domain.ApprovalGrantsProgress(approval) {
		if classification.IsEmergency {
			status = domain.StatusApproved
		} else {
			status = domain.StatusBidding
		}
	}

	created, err := s.repo.Create(ctx, repository.CreateParams{
		PropertyID:            req.PropertyID,
		TenantID:              actor.UserID(),
		Category:              classification.Category,
		Priority:              classification.Priority,
		Description:           req.Description,
		IsEmergency:           classification.IsEmergency,
		EmergencyType:         classification.EmergencyType,
		Status:                status,
		ApprovalStatus:        approval,
		EstimatedCostCents:    req.EstimatedCostCents,
		PaymentResponsibility: policy.PaymentResponsibility,
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	s.bus.Publish(ctx, events.RequestSubmitted{
		BaseEvent:   events.NewBaseEvent(),
		RequestID:   created.ID,
		PropertyID:  created.PropertyID,
		TenantID:    created.TenantID,
		Category:    string(created.Category),
		Priority:    string(created.Priority),
		IsEmergency: created.IsEmergency,
	})
	if domain.ApprovalGrantsProgress(approval) {
		s.bus.Publish(ctx, events.RequestApproved{
			BaseEvent:  events.NewBaseEvent(),
			RequestID:  created.ID,
			PropertyID: created.PropertyID,
			Auto:       true,
		})
	}

	if created.IsEmergency && s.escalations != nil {
		created, err = s.openEmergency(ctx, created)
		if err != nil {
			return transport.RequestResponse{}, err
		}
	}

	s.log.WorkflowTransition(created.ID.String(), "", string(created.Status), actor.Role())
	return toResponse(created), nil
}

// openEmergency creates the escalation tracking record and applies a
// direct-dispatch decision when the level-1 rule names a provider.
func (s *Service) openEmergency(ctx context.Context, req repository.Request) (repository.Request, error) {
	result, err := s.escalations.OpenTracking(ctx, req.ID, req.PropertyID, req.EmergencyType)
	if err != nil {
		// A missing escalation rule is an operator-facing configuration
		// error recorded on the tracking record; the tenant's request stays
		// valid either way.
		if apperr.Is(err, apperr.KindConfiguration) {
			s.log.ConfigurationError("escalation", err)
			return req, nil
		}
		return req, err
	}

	if result.DirectProviderID != nil && req.Status == domain.StatusApproved {
		assigned, err := s.repo.Assign(ctx, req.ID, req.Version, *result.DirectProviderID, nil)
		if err != nil {
			return req, err
		}
		s.bus.Publish(ctx, events.RequestAssigned{
			BaseEvent:  events.NewBaseEvent(),
			RequestID:  assigned.ID,
			ProviderID: *result.DirectProviderID,
			Source:     "direct_dispatch",
		})
		return assigned, nil
	}
	return req, nil
}

// Approve performs the manual approval step. Only landlords and agencies may
// approve, and only while approval is still pending.
func (s *Service) Approve(ctx context.Context, actor httpkit.Identity, id uuid.UUID, req transport.ApproveRequestRequest) (transport.RequestResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.RequestResponse{}, apperr.Forbidden("only a landlord or agency may approve requests")
	}

	updated, err := s.withConflictRetry(ctx, id, func(current repository.Request) (repository.Request, error) {
		if current.Status != domain.StatusSubmitted || current.ApprovalStatus != domain.ApprovalPending {
			return repository.Request{}, apperr.IllegalTransition(string(current.Status), string(domain.StatusApproved))
		}

		actorID := actor.UserID()
		approved, err := s.repo.SetApproval(ctx, id, current.Version,
			domain.ApprovalApproved, domain.StatusApproved, &actorID, req.Reason)
		if err != nil {
			return repository.Request{}, err
		}

		// Non-emergency requests open for bids immediately; emergencies wait
		// for direct dispatch.
		if !approved.IsEmergency {
			return s.repo.OpenBidding(ctx, id, approved.Version)
		}
		return approved, nil
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	actorID := actor.UserID()
	s.bus.Publish(ctx, events.RequestApproved{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  updated.ID,
		PropertyID: updated.PropertyID,
		Auto:       false,
		ApprovedBy: &actorID,
	})
	s.log.WorkflowTransition(id.String(), string(domain.StatusSubmitted), string(updated.Status), actor.Role())
	return toResponse(updated), nil
}

// Deny records a denial. Denial always requires a human actor and a reason.
func (s *Service) Deny(ctx context.Context, actor httpkit.Identity, id uuid.UUID, req transport.DenyRequestRequest) (transport.RequestResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.RequestResponse{}, apperr.Forbidden("only a landlord or agency may deny requests")
	}

	updated, err := s.withConflictRetry(ctx, id, func(current repository.Request) (repository.Request, error) {
		if current.Status != domain.StatusSubmitted || current.ApprovalStatus != domain.ApprovalPending {
			return repository.Request{}, apperr.IllegalTransition(string(current.Status), string(domain.StatusDenied))
		}
		actorID := actor.UserID()
		return s.repo.SetApproval(ctx, id, current.Version,
			domain.ApprovalDenied, domain.StatusDenied, &actorID, &req.Reason)
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	s.bus.Publish(ctx, events.RequestDenied{
		BaseEvent: events.NewBaseEvent(),
		RequestID: updated.ID,
		DeniedBy:  actor.UserID(),
		Reason:    req.Reason,
	})
	s.log.WorkflowTransition(id.String(), string(domain.StatusSubmitted), string(domain.StatusDenied), actor.Role())
	return toResponse(updated), nil
}

// ApproveUpToCeiling retroactively auto-approves a pending request whose
// estimated cost fits within a raised escalation authorization ceiling.
// Called by the escalation scheduler; a no-op when the request has moved on.
func (s *Service) ApproveUpToCeiling(ctx context.Context, requestID uuid.UUID, ceilingCents int64) error {
	current, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if current.Status != domain.StatusSubmitted || current.ApprovalStatus != domain.ApprovalPending {
		return nil
	}
	if current.EstimatedCostCents == nil || *current.EstimatedCostCents > ceilingCents {
		return nil
	}

	reason := fmt.Sprintf("auto-approved under escalation cost authorization of %d cents", ceilingCents)
	updated, err := s.repo.SetApproval(ctx, requestID, current.Version,
		domain.ApprovalApproved, domain.StatusApproved, nil, &reason)
	if err != nil {
		if apperr.IsRetryable(err) {
			return nil
		}
		return err
	}

	s.bus.Publish(ctx, events.RequestApproved{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  updated.ID,
		PropertyID: updated.PropertyID,
		Auto:       true,
	})
	return nil
}

// AssignDirect applies an emergency direct-dispatch decision. Used by the
// escalation scheduler when a later-level rule names a provider.
func (s *Service) AssignDirect(ctx context.Context, requestID, providerID uuid.UUID) error {
	_, err := s.withConflictRetry(ctx, requestID, func(current repository.Request) (repository.Request, error) {
		if !current.IsEmergency {
			return repository.Request{}, apperr.PolicyViolation("direct dispatch applies only to emergency requests")
		}
		if current.Status != domain.StatusApproved {
			return repository.Request{}, apperr.IllegalTransition(string(current.Status), string(domain.StatusAssigned))
		}
		return s.repo.Assign(ctx, requestID, current.Version, providerID, nil)
	})
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.RequestAssigned{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  requestID,
		ProviderID: providerID,
		Source:     "direct_dispatch",
	})
	return nil
}

// ApplyBidAssignment records a marketplace selection outcome on the request
// state machine. The bidding module has already committed the bid CAS; this
// only publishes the transition event and logs it.
func (s *Service) ApplyBidAssignment(ctx context.Context, requestID, providerID, bidID, selectedBy uuid.UUID) {
	s.bus.Publish(ctx, events.RequestAssigned{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  requestID,
		ProviderID: providerID,
		Source:     "bid_selection",
	})
	s.bus.Publish(ctx, events.BidSelected{
		BaseEvent:  events.NewBaseEvent(),
		BidID:      bidID,
		RequestID:  requestID,
		ProviderID: providerID,
		SelectedBy: selectedBy,
	})
	s.log.WorkflowTransition(requestID.String(), string(domain.StatusBidding), string(domain.StatusAssigned), httpkit.RoleLandlord)
}

// StartWork is the provider-initiated transition from assigned to in_progress.
func (s *Service) StartWork(ctx context.Context, actor httpkit.Identity, id uuid.UUID) (transport.RequestResponse, error) {
	updated, err := s.withConflictRetry(ctx, id, func(current repository.Request) (repository.Request, error) {
		if current.Status != domain.StatusAssigned {
			return repository.Request{}, apperr.IllegalTransition(string(current.Status), string(domain.StatusInProgress))
		}
		if current.AssignedProviderID == nil || *current.AssignedProviderID != actor.UserID() {
			return repository.Request{}, apperr.Forbidden("only the assigned provider may start work")
		}
		return s.repo.StartWork(ctx, id, current.Version)
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	s.bus.Publish(ctx, events.WorkStarted{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  updated.ID,
		ProviderID: actor.UserID(),
	})
	s.log.WorkflowTransition(id.String(), string(domain.StatusAssigned), string(domain.StatusInProgress), actor.Role())
	return toResponse(updated), nil
}

// Complete finishes an in-progress request. When the property policy demands
// photo evidence, at least one verified after/completion photo must exist or
// the transition is vetoed with a policy violation.
func (s *Service) Complete(ctx context.Context, actor httpkit.Identity, id uuid.UUID, req transport.CompleteRequestRequest) (transport.RequestResponse, error) {
	updated, err := s.withConflictRetry(ctx, id, func(current repository.Request) (repository.Request, error) {
		if current.Status != domain.StatusInProgress {
			return repository.Request{}, apperr.IllegalTransition(string(current.Status), string(domain.StatusCompleted))
		}

		policy, err := s.policies.GetPolicyView(ctx, current.PropertyID)
		if err != nil {
			return repository.Request{}, err
		}
		if policy.RequiresCompletionPhoto() {
			if s.photos == nil {
				return repository.Request{}, apperr.Configuration("photo verification gate is not wired")
			}
			ok, err := s.photos.HasVerifiedCompletionPhoto(ctx, id)
			if err != nil {
				return repository.Request{}, err
			}
			if !ok {
				return repository.Request{}, apperr.PolicyViolation("completion requires a verified after/completion photo")
			}
		}

		return s.repo.Complete(ctx, repository.CompleteParams{
			ID:          id,
			Version:     current.Version,
			CompletedAt: time.Now().UTC(),
			Rating:      req.Rating,
			Review:      req.Review,
		})
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	if updated.IsEmergency && s.escalations != nil {
		if err := s.escalations.ResolveForRequest(ctx, id); err != nil {
			s.log.Warn("failed to resolve escalation tracking", "request_id", id, "error", err)
		}
	}

	s.bus.Publish(ctx, events.RequestCompleted{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  updated.ID,
		ProviderID: updated.AssignedProviderID,
		Rating:     updated.Rating,
	})
	s.log.WorkflowTransition(id.String(), string(domain.StatusInProgress), string(domain.StatusCompleted), actor.Role())
	return toResponse(updated), nil
}

// Cancel terminates a request from any non-terminal state. The reason is
// mandatory; a provider cancelling their own assignment counts against the
// provider's reliability ledger.
func (s *Service) Cancel(ctx context.Context, actor httpkit.Identity, id uuid.UUID, req transport.CancelRequestRequest) (transport.RequestResponse, error) {
	var providerFault bool
	var assignedProvider *uuid.UUID

	updated, err := s.withConflictRetry(ctx, id, func(current repository.Request) (repository.Request, error) {
		if current.Status.IsTerminal() {
			return repository.Request{}, apperr.IllegalTransition(string(current.Status), string(domain.StatusCancelled))
		}

		assignedProvider = current.AssignedProviderID
		providerFault = actor.HasRole(httpkit.RoleProvider) &&
			current.AssignedProviderID != nil &&
			*current.AssignedProviderID == actor.UserID() &&
			(current.Status == domain.StatusAssigned || current.Status == domain.StatusInProgress)

		return s.repo.Cancel(ctx, repository.CancelParams{
			ID:          id,
			Version:     current.Version,
			CancelledBy: actor.UserID(),
			Reason:      req.Reason,
		})
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	if updated.IsEmergency && s.escalations != nil {
		if err := s.escalations.CancelForRequest(ctx, id); err != nil {
			s.log.Warn("failed to cancel escalation tracking", "request_id", id, "error", err)
		}
	}

	s.bus.Publish(ctx, events.RequestCancelled{
		BaseEvent:     events.NewBaseEvent(),
		RequestID:     updated.ID,
		CancelledBy:   actor.UserID(),
		ActorRole:     actor.Role(),
		Reason:        req.Reason,
		ProviderID:    assignedProvider,
		ProviderFault: providerFault,
	})
	s.log.WorkflowTransition(id.String(), "", string(domain.StatusCancelled), actor.Role())
	return toResponse(updated), nil
}

// GetByID retrieves a request snapshot.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.RequestResponse, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	return toResponse(req), nil
}

// ListByProperty retrieves all requests for a property.
func (s *Service) ListByProperty(ctx context.Context, propertyID uuid.UUID) (transport.RequestListResponse, error) {
	items, err := s.repo.ListByProperty(ctx, propertyID)
	if err != nil {
		return transport.RequestListResponse{}, err
	}
	return toListResponse(items), nil
}

// ListByTenant retrieves all requests submitted by a tenant.
func (s *Service) ListByTenant(ctx context.Context, tenantID uuid.UUID) (transport.RequestListResponse, error) {
	items, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return transport.RequestListResponse{}, err
	}
	return toListResponse(items), nil
}

// withConflictRetry loads the current request, applies fn, and retries once
// when the guarded update reports a concurrency conflict.
func (s *Service) withConflictRetry(ctx context.Context, id uuid.UUID, fn func(current repository.Request) (repository.Request, error)) (repository.Request, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Request{}, err
	}

	updated, err := fn(current)
	if err == nil {
		return updated, nil
	}
	if !apperr.IsRetryable(err) {
		return repository.Request{}, err
	}

	current, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Request{}, err
	}
	return fn(current)
}

func toResponse(r repository.Request) transport.RequestResponse {
	return transport.RequestResponse{
		ID:                    r.ID,
		PropertyID:            r.PropertyID,
		TenantID:              r.TenantID,
		Category:              string(r.Category),
		Priority:              string(r.Priority),
		Description:           r.Description,
		IsEmergency:           r.IsEmergency,
		EmergencyType:         string(r.EmergencyType),
		Status:                string(r.Status),
		ApprovalStatus:        string(r.ApprovalStatus),
		ApprovalReason:        r.ApprovalReason,
		ApprovedBy:            r.ApprovedBy,
		EstimatedCostCents:    r.EstimatedCostCents,
		PaymentResponsibility: string(r.PaymentResponsibility),
		SelectedBidID:         r.SelectedBidID,
		AssignedProviderID:    r.AssignedProviderID,
		Rating:                r.Rating,
		Review:                r.Review,
		CompletionDate:        r.CompletionDate,
		CancelledBy:           r.CancelledBy,
		CancelReason:          r.CancelReason,
		Version:               r.Version,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

func toListResponse(items []repository.Request) transport.RequestListResponse {
	out := make([]transport.RequestResponse, 0, len(items))
	for _, r := range items {
		out = append(out, toResponse(r))
	}
	return transport.RequestListResponse{Items: out, Total: len(out)}
}
