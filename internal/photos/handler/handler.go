package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propertyops_backend/internal/photos/service"
	"propertyops_backend/internal/photos/transport"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/validator"
)

// Handler handles HTTP requests for photo evidence.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new photos handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Presign registers a pending photo and returns the upload URL.
// POST /api/v1/requests/:id/photos
func (h *Handler) Presign(c *gin.Context) {
	requestID, identity, ok := pathID(c, "id", "invalid request ID")
	if !ok {
		return
	}

	var req transport.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.PresignUpload(c.Request.Context(), identity, requestID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Confirm stamps a completed upload.
// POST /api/v1/photos/:id/confirm
func (h *Handler) Confirm(c *gin.Context) {
	photoID, identity, ok := pathID(c, "id", "invalid photo ID")
	if !ok {
		return
	}

	result, err := h.svc.ConfirmUpload(c.Request.Context(), identity, photoID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Verify records the reviewer's verdict.
// POST /api/v1/photos/:id/verify
func (h *Handler) Verify(c *gin.Context) {
	photoID, identity, ok := pathID(c, "id", "invalid photo ID")
	if !ok {
		return
	}

	var req transport.VerifyPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.Verify(c.Request.Context(), identity, photoID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List retrieves all photos on a request.
// GET /api/v1/requests/:id/photos
func (h *Handler) List(c *gin.Context) {
	requestID, _, ok := pathID(c, "id", "invalid request ID")
	if !ok {
		return
	}

	result, err := h.svc.ListByRequest(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Download returns a presigned download URL.
// GET /api/v1/photos/:id/download
func (h *Handler) Download(c *gin.Context) {
	photoID, _, ok := pathID(c, "id", "invalid photo ID")
	if !ok {
		return
	}

	result, err := h.svc.DownloadURL(c.Request.Context(), photoID)
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
