package audit

import (
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler exposes the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermAuditView))
	r.Get("/", h.timeline)
	r.Get("/export.csv", h.export)
}

func (h *Handler) filters(r *http.Request) (Filters, error) {
	from, _, err := httpx.DateQuery(r, "from", h.loc)
	if err != nil {
		return Filters{}, err
	}
	to, ok, err := httpx.DateQuery(r, "to", h.loc)
	if err != nil {
		return Filters{}, err
	}
	if ok {
		to = to.AddDate(0, 0, 1)
	}
	q := r.URL.Query()
	return Filters{From: from, To: to, Actor: q.Get("actor"), Entity: q.Get("entity"), Action: q.Get("action")}, nil
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	f, err := h.filters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	page, err := h.service.Timeline(r.Context(), f, shared.ParsePage(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	f, err := h.filters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	entries, err := h.service.Export(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="auditoria.csv"`)
	if err := writeCSV(w, entries, h.loc); err != nil {
		h.logger.Warn("write audit csv", slog.Any("error", err))
	}
}

func writeCSV(w io.Writer, entries []Entry, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fecha", "usuario", "accion", "entidad", "id"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.At.In(loc).Format("2006-01-02 15:04:05"),
			e.Actor,
			e.Action,
			e.Entity,
			e.EntityID,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
