// Package service manages per-property maintenance policies and exposes the
// read-only policy view consumed by approval routing and the photo gate.
package service

import (
	"context"

	"github.com/google/uuid"

	maintdomain "propertyops_backend/internal/maintenance/domain"
	"propertyops_backend/internal/policy/repository"
	"propertyops_backend/internal/policy/transport"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

// Service provides business logic for property policies.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new policy service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Upsert creates or replaces the policy for a property. Landlord and agency
// only; split payment requires a positive ceiling.
func (s *Service) Upsert(ctx context.Context, actor httpkit.Identity, propertyID uuid.UUID, req transport.UpsertPolicyRequest) (transport.PolicyResponse, error) {
	if !actor.HasRole(httpkit.RoleLandlord, httpkit.RoleAgency) {
		return transport.PolicyResponse{}, apperr.Forbidden("only a landlord or agency may manage policies")
	}
	if req.PaymentResponsibility == string(maintdomain.PaymentSplit) && req.SplitCeilingCents <= 0 {
		return transport.PolicyResponse{}, apperr.Validation("split payment requires a positive split ceiling")
	}
	if req.ApprovalMode == string(maintdomain.ApprovalModeOverAmount) && req.AutoApprovalLimitCents <= 0 {
		return transport.PolicyResponse{}, apperr.Validation("over_amount approval requires a positive auto-approval limit")
	}

	policy, err := s.repo.Upsert(ctx, repository.UpsertParams{
		PropertyID:              propertyID,
		PaymentResponsibility:   req.PaymentResponsibility,
		SplitCeilingCents:       req.SplitCeilingCents,
		ApprovalMode:            req.ApprovalMode,
		AutoApprovalLimitCents:  req.AutoApprovalLimitCents,
		RequirePhotos:           req.RequirePhotos,
		RequireCompletionPhotos: req.RequireCompletionPhotos,
		EmergencyAutoApprove:    req.EmergencyAutoApprove,
	})
	if err != nil {
		return transport.PolicyResponse{}, err
	}

	s.log.Info("property policy updated", "property_id", propertyID, "approval_mode", policy.ApprovalMode)
	return toResponse(policy), nil
}

// Get retrieves the stored policy for a property.
func (s *Service) Get(ctx context.Context, propertyID uuid.UUID) (transport.PolicyResponse, error) {
	policy, err := s.repo.GetByProperty(ctx, propertyID)
	if err != nil {
		return transport.PolicyResponse{}, err
	}
	return toResponse(policy), nil
}

// GetPolicyView resolves the policy slice the workflow engine consumes. A
// property without a stored policy gets the conservative default: landlord
// pays, every request needs manual approval, emergencies auto-approve.
func (s *Service) GetPolicyView(ctx context.Context, propertyID uuid.UUID) (maintdomain.PolicyView, error) {
	policy, err := s.repo.GetByProperty(ctx, propertyID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return defaultPolicyView(), nil
		}
		return maintdomain.PolicyView{}, err
	}

	return maintdomain.PolicyView{
		PaymentResponsibility:   maintdomain.PaymentResponsibility(policy.PaymentResponsibility),
		SplitCeilingCents:       policy.SplitCeilingCents,
		ApprovalMode:            maintdomain.ApprovalMode(policy.ApprovalMode),
		AutoApprovalLimitCents:  policy.AutoApprovalLimitCents,
		RequirePhotos:           policy.RequirePhotos,
		RequireCompletionPhotos: policy.RequireCompletionPhotos,
		EmergencyAutoApprove:    policy.EmergencyAutoApprove,
	}, nil
}

func defaultPolicyView() maintdomain.PolicyView {
	return maintdomain.PolicyView{
		PaymentResponsibility: maintdomain.PaymentLandlord,
		ApprovalMode:          maintdomain.ApprovalModeAll,
		EmergencyAutoApprove:  true,
	}
}

func toResponse(p repository.Policy) transport.PolicyResponse {
	return transport.PolicyResponse{
		ID:                      p.ID,
		PropertyID:              p.PropertyID,
		PaymentResponsibility:   p.PaymentResponsibility,
		SplitCeilingCents:       p.SplitCeilingCents,
		ApprovalMode:            p.ApprovalMode,
		AutoApprovalLimitCents:  p.AutoApprovalLimitCents,
		RequirePhotos:           p.RequirePhotos,
		RequireCompletionPhotos: p.RequireCompletionPhotos,
		EmergencyAutoApprove:    p.EmergencyAutoApprove,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}
