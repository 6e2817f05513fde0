package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propertyops_backend/internal/providers/service"
	"propertyops_backend/internal/providers/transport"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/validator"
)

// Handler handles HTTP requests for the reliability ledger.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new providers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GetReliability retrieves the derived reliability snapshot.
// GET /api/v1/providers/:id/reliability
func (h *Handler) GetReliability(c *gin.Context) {
	providerID, _, ok := pathID(c, "id", "invalid provider ID")
	if !ok {
		return
	}

	result, err := h.svc.GetReliability(c.Request.Context(), providerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// IssuePenalty records an infraction against a provider.
// POST /api/v1/providers/:id/penalties
func (h *Handler) IssuePenalty(c *gin.Context) {
	providerID, identity, ok := pathID(c, "id", "invalid provider ID")
	if !ok {
		return
	}

	var req transport.IssuePenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.IssuePenalty(c.Request.Context(), identity, providerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ListPenalties retrieves a provider's penalties.
// GET /api/v1/providers/:id/penalties
func (h *Handler) ListPenalties(c *gin.Context) {
	providerID, _, ok := pathID(c, "id", "invalid provider ID")
	if !ok {
		return
	}

	result, err := h.svc.ListPenalties(c.Request.Context(), providerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Appeal lets the penalized provider contest a penalty.
// POST /api/v1/penalties/:id/appeal
func (h *Handler) Appeal(c *gin.Context) {
	penaltyID, identity, ok := pathID(c, "id", "invalid penalty ID")
	if !ok {
		return
	}

	result, err := h.svc.AppealPenalty(c.Request.Context(), identity, penaltyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DecideAppeal resolves an appeal.
// POST /api/v1/penalties/:id/decide
func (h *Handler) DecideAppeal(c *gin.Context) {
	penaltyID, identity, ok := pathID(c, "id", "invalid penalty ID")
	if !ok {
		return
	}

	var req struct {
		Overturn bool `json:"overturn"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	result, err := h.svc.DecideAppeal(c.Request.Context(), identity, penaltyID, req.Overturn)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func pathID(c *gin.Context, param, msg string) (uuid.UUID, httpkit.Identity, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, nil, false
	}
	return id, identity, true
}
