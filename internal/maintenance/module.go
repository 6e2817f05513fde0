// Package maintenance provides the maintenance-request bounded context: the
// authoritative workflow state machine from submission through completion or
// cancellation, with classification, approval routing, and the photo gate.
package maintenance

import (
	"propertyops_backend/internal/events"
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/internal/maintenance/handler"
	"propertyops_backend/internal/maintenance/repository"
	"propertyops_backend/internal/maintenance/service"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the maintenance bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the maintenance module with all its dependencies.
func NewModule(pool *pgxpool.Pool, policies service.PolicyReader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, policies, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "maintenance"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts maintenance request routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	requests := ctx.Protected.Group("/requests")
	requests.POST("", m.handler.Submit)
	requests.GET("/:id", m.handler.GetByID)
	requests.POST("/:id/approve", httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency), m.handler.Approve)
	requests.POST("/:id/deny", httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency), m.handler.Deny)
	requests.POST("/:id/start", httpkit.RequireRole(httpkit.RoleProvider), m.handler.StartWork)
	requests.POST("/:id/complete", m.handler.Complete)
	requests.POST("/:id/cancel", m.handler.Cancel)

	ctx.Protected.GET("/properties/:propertyId/requests", m.handler.ListByProperty)
	ctx.Protected.GET("/my/requests", m.handler.ListMine)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
