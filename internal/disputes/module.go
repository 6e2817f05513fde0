// Package disputes provides the dispute resolution bounded context: a state
// machine over disagreements about completed or cancelled work, with an
// append-only timeline and ledger-feeding resolutions.
package disputes

import (
	"propertyops_backend/internal/disputes/handler"
	"propertyops_backend/internal/disputes/repository"
	"propertyops_backend/internal/disputes/service"
	"propertyops_backend/internal/events"
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the disputes bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the disputes module.
func NewModule(pool *pgxpool.Pool, requests service.RequestReader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, requests, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "disputes"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts dispute routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	disputes := ctx.Protected.Group("/disputes")
	disputes.POST("", m.handler.Open)
	disputes.GET("/:id", m.handler.Get)
	disputes.POST("/:id/advance", m.handler.Advance)
	disputes.POST("/:id/resolve", m.handler.Resolve)

	ctx.Protected.GET("/requests/:id/disputes", m.handler.ListByRequest)
}

var _ apphttp.Module = (*Module)(nil)
