package reports

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/rbac"
)

// Deps are the collaborators the reports are wired with.
type Deps struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	RBAC   rbac.Middleware
	Cache  Cache
	Config Config
}

// MountRoutes wires the reports service and registers /reports.
func MountRoutes(r chi.Router, deps Deps) *Service {
	svc := NewService(NewRepository(deps.Pool), deps.Cache, deps.Config, deps.Logger)
	loc := deps.Config.Location
	if loc == nil {
		loc = time.Local
	}
	h := NewHandler(deps.Logger, svc, deps.RBAC, loc)
	r.Route("/reports", h.MountRoutes)
	return svc
}
