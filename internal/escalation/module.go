// Package escalation provides the emergency escalation bounded context:
// SLA-tracked response deadlines, tiered notification rules, and the sweep
// hook the scheduler drives.
package escalation

import (
	"context"

	"propertyops_backend/internal/escalation/handler"
	"propertyops_backend/internal/escalation/repository"
	"propertyops_backend/internal/escalation/service"
	"propertyops_backend/internal/events"
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the escalation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the escalation module. A provider
// starting work counts as the first response, so the module subscribes to
// the work-started event.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	tracking := repository.NewTrackingRepo(pool)
	rules := repository.NewRuleRepo(pool)
	svc := service.New(tracking, rules, bus, log)
	h := handler.New(svc, val)

	bus.Subscribe("maintenance.work.started", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		started, ok := e.(events.WorkStarted)
		if !ok {
			return nil
		}
		// Non-emergency requests have no tracking record.
		_, err := svc.RecordResponse(ctx, started.RequestID)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}))

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "escalation"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts escalation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/requests/:id/escalation", m.handler.GetTracking)
	ctx.Protected.POST("/requests/:id/escalation/respond", m.handler.Respond)

	rules := httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency)
	ctx.Protected.PUT("/properties/:propertyId/escalation-rules", rules, m.handler.UpsertRule)
	ctx.Protected.GET("/properties/:propertyId/escalation-rules", m.handler.ListRules)
	ctx.Protected.DELETE("/escalation-rules/:id", rules, m.handler.DeleteRule)
}

var _ apphttp.Module = (*Module)(nil)
