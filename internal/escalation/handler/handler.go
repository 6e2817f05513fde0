package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propertyops_backend/internal/escalation/service"
	"propertyops_backend/internal/escalation/transport"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/validator"
)

// Handler handles HTTP requests for emergency escalation.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new escalation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GetTracking retrieves the escalation record for a request.
// GET /api/v1/requests/:id/escalation
func (h *Handler) GetTracking(c *gin.Context) {
	requestID, _, ok := pathID(c, "id", "invalid request ID")
	if !ok {
		return
	}

	result, err := h.svc.GetByRequest(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Respond stamps the first response on an emergency, freezing escalation.
// POST /api/v1/requests/:id/escalation/respond
func (h *Handler) Respond(c *gin.Context) {
	requestID, _, ok := pathID(c, "id", "invalid request ID")
	if !ok {
		return
	}

	result, err := h.svc.RecordResponse(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpsertRule creates or replaces an escalation tier for a property.
// PUT /api/v1/properties/:propertyId/escalation-rules
func (h *Handler) UpsertRule(c *gin.Context) {
	propertyID, identity, ok := pathID(c, "propertyId", "invalid property ID")
	if !ok {
		return
	}

	var req transport.UpsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.UpsertRule(c.Request.Context(), identity, propertyID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListRules retrieves a property's escalation rules.
// GET /api/v1/properties/:propertyId/escalation-rules
func (h *Handler) ListRules(c *gin.Context) {
	propertyID, _, ok := pathID(c, "propertyId", "invalid property ID")
	if !ok {
		return
	}

	result, err := h.svc.ListRules(c.Request.Context(), propertyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteRule removes an escalation rule.
// DELETE /api/v1/escalation-rules/:id
func (h *Handler) DeleteRule(c *gin.Context) {
	id, identity, ok := pathID(c, "id", "invalid rule ID")
	if !ok {
		return
	}

	if err := h.svc.DeleteRule(c.Request.Context(), identity, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
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
