// Package photos provides the photo evidence bounded context: presigned
// uploads, reviewer verification, and the read the completion gate depends on.
package photos

import (
	"propertyops_backend/internal/events"
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/internal/photos/handler"
	"propertyops_backend/internal/photos/repository"
	"propertyops_backend/internal/photos/service"
	"propertyops_backend/internal/storage"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the photos bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the photos module.
func NewModule(pool *pgxpool.Pool, store storage.Service, cfg service.BucketConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, store, cfg, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "photos"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts photo evidence routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/requests/:id/photos", m.handler.Presign)
	ctx.Protected.GET("/requests/:id/photos", m.handler.List)
	ctx.Protected.POST("/photos/:id/confirm", m.handler.Confirm)
	ctx.Protected.POST("/photos/:id/verify",
		httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency), m.handler.Verify)
	ctx.Protected.GET("/photos/:id/download", m.handler.Download)
}

var _ apphttp.Module = (*Module)(nil)
