package delivery

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/rbac"
)

// Deps are the collaborators the delivery domain is wired with.
type Deps struct {
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	RBAC     rbac.Middleware
	Catalog  MenuCatalog
	Config   Config
	Notifier Notifier
	Metrics  Recorder
}

// MountRoutes wires the delivery domain and registers its routes.
func MountRoutes(r chi.Router, deps Deps) *Service {
	svc := NewService(NewRepository(deps.Pool), deps.Catalog, deps.Config, deps.Logger)
	if deps.Notifier != nil {
		svc.SetNotifier(deps.Notifier)
	}
	if deps.Metrics != nil {
		svc.SetMetrics(deps.Metrics)
	}
	loc := deps.Config.Location
	if loc == nil {
		loc = time.Local
	}
	h := NewHandler(deps.Logger, svc, deps.RBAC, loc)

	r.Route("/deliveries", h.MountDeliveries)
	r.Route("/couriers", h.MountCouriers)
	r.Route("/zones", h.MountZones)
	return svc
}
