package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/audit"
	"github.com/comanda-pos/comanda/internal/auth"
	"github.com/comanda-pos/comanda/internal/delivery"
	"github.com/comanda-pos/comanda/internal/dining"
	"github.com/comanda-pos/comanda/internal/expenses"
	"github.com/comanda-pos/comanda/internal/invoicing"
	"github.com/comanda-pos/comanda/internal/menu"
	"github.com/comanda-pos/comanda/internal/observability"
	"github.com/comanda-pos/comanda/internal/platform/cache"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/reports"
	"github.com/comanda-pos/comanda/internal/settings"
	"github.com/comanda-pos/comanda/internal/shared"
	"github.com/comanda-pos/comanda/internal/tables"
	"github.com/comanda-pos/comanda/internal/users"
	"github.com/comanda-pos/comanda/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Pool           *pgxpool.Pool
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Tokens         TokenParser
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	TablesHandler      *tables.Handler
	DiningHandler      *dining.Handler
	MenuHandler        *menu.Handler
	InvoicingHandler   *invoicing.Handler
	SettingsHandler    *settings.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	AuditHandler       *audit.Handler

	Menu        *menu.Service
	ReportCache *cache.Versioned
	Notifier    delivery.Notifier
	Alerts      expenses.AlertQueue
	Audit       shared.AuditRecorder
}

// NewRouter constructs the chi.Router with comanda defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Tokens:         params.Tokens,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "App is running"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	loc := params.Config.Location()
	cutoff := params.Config.BusinessDayCutoffHour

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	r.Route("/tables", params.TablesHandler.MountRoutes)
	params.DiningHandler.MountRoutes(r)
	r.Route("/menu", params.MenuHandler.MountRoutes)
	params.InvoicingHandler.MountRoutes(r)

	deliveryDeps := delivery.Deps{
		Pool:    params.Pool,
		Logger:  params.Logger,
		RBAC:    params.RBACMiddleware,
		Catalog: params.Menu,
		Config: delivery.Config{
			DefaultFee: params.Config.DefaultDeliveryFee,
			DefaultETA: params.Config.DefaultDeliveryETA,
			LateAfter:  params.Config.LateDeliveryAfter(),
			CutoffHour: cutoff,
			Location:   loc,
		},
		Notifier: params.Notifier,
	}
	if params.Metrics != nil {
		deliveryDeps.Metrics = params.Metrics
	}
	delivery.MountRoutes(r, deliveryDeps)

	expenseDeps := expenses.Deps{
		Pool:    params.Pool,
		Logger:  params.Logger,
		RBAC:    params.RBACMiddleware,
		Catalog: params.Menu,
		Config:  expenses.Config{CutoffHour: cutoff, Location: loc},
		Alerts:  params.Alerts,
		Audit:   params.Audit,
	}
	if params.Metrics != nil {
		expenseDeps.Metrics = params.Metrics
	}
	if params.ReportCache != nil {
		expenseDeps.Cache = params.ReportCache
	}
	expenses.MountRoutes(r, expenseDeps)

	reportDeps := reports.Deps{
		Pool:   params.Pool,
		Logger: params.Logger,
		RBAC:   params.RBACMiddleware,
		Config: reports.Config{CutoffHour: cutoff, Location: loc},
	}
	if params.ReportCache != nil {
		reportDeps.Cache = params.ReportCache
	}
	reports.MountRoutes(r, reportDeps)

	r.Route("/settings", params.SettingsHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(shared.PermJobsView))
			params.JobHandler.MountRoutes(r)
		})
	}

	return r
}
