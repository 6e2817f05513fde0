// Package policy provides the property policy bounded context: who pays for
// maintenance, when manual approval is required, and whether completion
// photos are mandatory.
package policy

import (
	apphttp "propertyops_backend/internal/http"
	"propertyops_backend/internal/policy/handler"
	"propertyops_backend/internal/policy/repository"
	"propertyops_backend/internal/policy/service"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
	"propertyops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the policy bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the policy module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "policy"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts policy routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.PUT("/properties/:propertyId/policy",
		httpkit.RequireRole(httpkit.RoleLandlord, httpkit.RoleAgency), m.handler.Upsert)
	ctx.Protected.GET("/properties/:propertyId/policy", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
