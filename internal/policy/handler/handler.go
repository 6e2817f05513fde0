package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propertyops_backend/internal/policy/service"
	"propertyops_backend/internal/policy/transport"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/validator"
)

// Handler handles HTTP requests for property policies.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new policy handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Upsert creates or replaces the policy for a property.
// PUT /api/v1/properties/:propertyId/policy
func (h *Handler) Upsert(c *gin.Context) {
	propertyID, identity, ok := h.propertyID(c)
	if !ok {
		return
	}

	var req transport.UpsertPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.Upsert(c.Request.Context(), identity, propertyID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves the policy for a property.
// GET /api/v1/properties/:propertyId/policy
func (h *Handler) Get(c *gin.Context) {
	propertyID, _, ok := h.propertyID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), propertyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) propertyID(c *gin.Context) (uuid.UUID, httpkit.Identity, bool) {
	id, err := uuid.Parse(c.Param("propertyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid property ID", nil)
		return uuid.Nil, nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, nil, false
	}
	return id, identity, true
}
