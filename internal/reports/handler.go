package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers /reports routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermReportView))
	r.Get("/financial", h.financial)
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) financial(w http.ResponseWriter, r *http.Request) {
	from, _, err := httpx.DateQuery(r, "from", h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	to, _, err := httpx.DateQuery(r, "to", h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	report, err := h.service.Financial(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
