package expenses

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Deps are the collaborators the expenses domain is wired with.
type Deps struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	RBAC    rbac.Middleware
	Catalog MenuCatalog
	Config  Config
	Alerts  AlertQueue
	Metrics Recorder
	Cache   CacheBumper
	Audit   shared.AuditRecorder
}

// MountRoutes wires the expenses domain and registers its routes.
func MountRoutes(r chi.Router, deps Deps) *Service {
	svc := NewService(NewRepository(deps.Pool), deps.Catalog, deps.Config, deps.Logger)
	if deps.Alerts != nil {
		svc.SetAlertQueue(deps.Alerts)
	}
	if deps.Metrics != nil {
		svc.SetMetrics(deps.Metrics)
	}
	if deps.Cache != nil {
		svc.SetCache(deps.Cache)
	}
	if deps.Audit != nil {
		svc.SetAudit(deps.Audit)
	}
	loc := deps.Config.Location
	if loc == nil {
		loc = time.Local
	}
	h := NewHandler(deps.Logger, svc, deps.RBAC, loc)

	r.Route("/expenses", h.MountExpenses)
	r.Route("/payables", h.MountPayables)
	r.Route("/providers", h.MountProviders)
	r.Route("/budgets", h.MountBudgets)
	r.Route("/staff-meals", h.MountStaffMeals)
	return svc
}
