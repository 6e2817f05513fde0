// Package providers provides the reliability ledger bounded context: job
// counters fed by workflow events, a penalty lifecycle with appeals, and the
// derived score that gates marketplace participation.
package providers

import (
	"context"

	"propertyops_backend/internal/events"
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/internal/providers/handler"
	"propertyops_backend/internal/providers/repository"
	"propertyops_backend/internal/providers/service"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the providers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the providers module. The ledger counters
// are fed entirely by workflow events; the maintenance module never calls the
// ledger directly.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	reliability := repository.NewReliabilityRepo(pool)
	penalties := repository.NewPenaltyRepo(pool)
	svc := service.New(reliability, penalties, bus, log)
	h := handler.New(svc, val)

	bus.Subscribe("maintenance.request.assigned", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		assigned, ok := e.(events.RequestAssigned)
		if !ok {
			return nil
		}
		return svc.RecordAssignment(ctx, assigned.ProviderID)
	}))

	bus.Subscribe("maintenance.request.completed", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		completed, ok := e.(events.RequestCompleted)
		if !ok || completed.ProviderID == nil {
			return nil
		}
		return svc.RecordCompletion(ctx, *completed.ProviderID, completed.Rating)
	}))

	bus.Subscribe("maintenance.request.cancelled", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		cancelled, ok := e.(events.RequestCancelled)
		if !ok || !cancelled.ProviderFault || cancelled.ProviderID == nil {
			return nil
		}
		return svc.RecordProviderFaultCancellation(ctx, *cancelled.ProviderID)
	}))

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "providers"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts reliability ledger routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/providers/:id/reliability", m.handler.GetReliability)
	ctx.Protected.GET("/providers/:id/penalties", m.handler.ListPenalties)
	ctx.Protected.POST("/providers/:id/penalties",
		httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency), m.handler.IssuePenalty)
	ctx.Protected.POST("/penalties/:id/appeal", httpkit.RequireRole(httpkit.RoleProvider), m.handler.Appeal)
	ctx.Protected.POST("/penalties/:id/decide",
		httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency), m.handler.DecideAppeal)
}

var _ apphttp.Module = (*Module)(nil)
