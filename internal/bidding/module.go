// Package bidding provides the competitive bidding bounded context for
// approved non-emergency maintenance requests.
package bidding

import (
	"propertyops_backend/internal/bidding/handler"
	"propertyops_backend/internal/bidding/repository"
	"propertyops_backend/internal/bidding/service"
	"propertyops_backend/internal/events"
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the bidding bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the bidding module.
func NewModule(pool *pgxpool.Pool, requests service.RequestReader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, requests, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "bidding"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts bidding routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/requests/:id/bids", httpkit.RequireRole(httpkit.RoleProvider), m.handler.Submit)
	ctx.Protected.GET("/requests/:id/bids", m.handler.List)
	ctx.Protected.POST("/requests/:id/bids/:bidId/select",
		httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency), m.handler.Select)
	ctx.Protected.POST("/bids/:id/withdraw", httpkit.RequireRole(httpkit.RoleProvider), m.handler.Withdraw)
	ctx.Protected.GET("/my/bids", httpkit.RequireRole(httpkit.RoleProvider), m.handler.ListMine)
}

var _ apphttp.Module = (*Module)(nil)
