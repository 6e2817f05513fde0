package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propertyops_backend/internal/bidding/service"
	"propertyops_backend/internal/bidding/transport"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/validator"
)

// Handler handles HTTP requests for the bidding marketplace.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new bidding handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Submit places a bid on a request.
// POST /api/v1/requests/:id/bids
func (h *Handler) Submit(c *gin.Context) {
	requestID, identity, ok := pathID(c, "id", "invalid request ID")
	if !ok {
		return
	}

	var req transport.SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.SubmitBid(c.Request.Context(), identity, requestID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Withdraw withdraws the caller's pending bid.
// POST /api/v1/bids/:id/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	bidID, identity, ok := pathID(c, "id", "invalid bid ID")
	if !ok {
		return
	}

	result, err := h.svc.WithdrawBid(c.Request.Context(), identity, bidID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List retrieves all bids on a request.
// GET /api/v1/requests/:id/bids
func (h *Handler) List(c *gin.Context) {
	requestID, _, ok := pathID(c, "id", "invalid request ID")
	if !ok {
		return
	}

	result, err := h.svc.ListBids(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMine retrieves the calling provider's bids.
// GET /api/v1/my/bids
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListMyBids(c.Request.Context(), identity)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Select accepts a bid and assigns the request.
// POST /api/v1/requests/:id/bids/:bidId/select
func (h *Handler) Select(c *gin.Context) {
	requestID, identity, ok := pathID(c, "id", "invalid request ID")
	if !ok {
		return
	}
	bidID, err := uuid.Parse(c.Param("bidId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid bid ID", nil)
		return
	}

	result, err := h.svc.SelectBid(c.Request.Context(), identity, requestID, bidID)
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
