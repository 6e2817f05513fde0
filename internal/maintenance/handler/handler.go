package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propertyops_backend/internal/maintenance/service"
	"propertyops_backend/internal/maintenance/transport"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/validator"
)

// Handler handles HTTP requests for the maintenance workflow.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid request ID"
)

// New creates a new maintenance handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Submit creates a new maintenance request.
// POST /api/v1/requests
func (h *Handler) Submit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), identity, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Approve performs the manual approval step.
// POST /api/v1/requests/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, identity, ok := h.requestID(c)
	if !ok {
		return
	}

	var req transport.ApproveRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Approve(c.Request.Context(), identity, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Deny denies a pending request; a reason is mandatory.
// POST /api/v1/requests/:id/deny
func (h *Handler) Deny(c *gin.Context) {
	id, identity, ok := h.requestID(c)
	if !ok {
		return
	}

	var req transport.DenyRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Deny(c.Request.Context(), identity, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// StartWork is the assigned provider's start-of-work action.
// POST /api/v1/requests/:id/start
func (h *Handler) StartWork(c *gin.Context) {
	id, identity, ok := h.requestID(c)
	if !ok {
		return
	}

	result, err := h.svc.StartWork(c.Request.Context(), identity, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Complete finishes an in-progress request.
// POST /api/v1/requests/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	id, identity, ok := h.requestID(c)
	if !ok {
		return
	}

	var req transport.CompleteRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), identity, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Cancel terminates a request; a reason is mandatory.
// POST /api/v1/requests/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, identity, ok := h.requestID(c)
	if !ok {
		return
	}

	var req transport.CancelRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), identity, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a request snapshot.
// GET /api/v1/requests/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, _, ok := h.requestID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListByProperty retrieves all requests for a property.
// GET /api/v1/properties/:propertyId/requests
func (h *Handler) ListByProperty(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("propertyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid property ID", nil)
		return
	}
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	result, err := h.svc.ListByProperty(c.Request.Context(), propertyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMine retrieves the calling tenant's requests.
// GET /api/v1/my/requests
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListByTenant(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) requestID(c *gin.Context) (uuid.UUID, httpkit.Identity, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, nil, false
	}
	return id, identity, true
}
