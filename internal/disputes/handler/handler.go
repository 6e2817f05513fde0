package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propertyops_backend/internal/disputes/service"
	"propertyops_backend/internal/disputes/transport"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/validator"
)

// Handler handles HTTP requests for disputes.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new disputes handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Open creates a dispute.
// POST /api/v1/disputes
func (h *Handler) Open(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.Open(c.Request.Context(), identity, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Advance moves a dispute to the next state.
// POST /api/v1/disputes/:id/advance
func (h *Handler) Advance(c *gin.Context) {
	disputeID, identity, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.AdvanceDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.Advance(c.Request.Context(), identity, disputeID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Resolve records the resolution outcome.
// POST /api/v1/disputes/:id/resolve
func (h *Handler) Resolve(c *gin.Context) {
	disputeID, identity, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.Resolve(c.Request.Context(), identity, disputeID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves a dispute with its timeline.
// GET /api/v1/disputes/:id
func (h *Handler) Get(c *gin.Context) {
	disputeID, _, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), disputeID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListByRequest retrieves all disputes on a request.
// GET /api/v1/requests/:id/disputes
func (h *Handler) ListByRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request ID", nil)
		return
	}
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	result, err := h.svc.ListByRequest(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func pathID(c *gin.Context) (uuid.UUID, httpkit.Identity, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid dispute ID", nil)
		return uuid.Nil, nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, nil, false
	}
	return id, identity, true
}
