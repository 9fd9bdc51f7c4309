package dining

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler exposes session, order, kitchen and notification endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler builds a Handler. Dates in query strings are read in loc.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers the dining routes on the API router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermSessionView))
			r.Get("/history", h.history)
			r.Get("/{id}", h.summary)
			r.Get("/table/{tableID}", h.tableSummary)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermOrderCreate))
			r.Post("/table/{tableID}/open", h.open)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermSessionEnd))
			r.Post("/{id}/close", h.close)
			r.Post("/table/{tableID}/release", h.release)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(h.rbac.RequireAny(shared.PermOrderCreate)).Post("/", h.place)
		r.With(h.rbac.RequireAny(shared.PermOrderState)).Post("/{id}/state", h.advance)
		r.With(h.rbac.RequireAny(shared.PermOrderPay)).Post("/{id}/paid", h.markPaid)
		r.With(h.rbac.RequireAny(shared.PermOrderDelete)).Delete("/{id}", h.deleteOrder)
	})

	r.With(h.rbac.RequireAny(shared.PermKitchenView)).Get("/kitchen/queue", h.kitchen)
	r.With(h.rbac.RequireAny(shared.PermNotifyFeed)).Get("/notifications/ready", h.ready)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	tableID, err := httpx.IDParam(r, "tableID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sess, err := h.service.OpenOrGetActiveSession(r.Context(), tableID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sum, err := h.service.SessionSummary(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *Handler) tableSummary(w http.ResponseWriter, r *http.Request) {
	tableID, err := httpx.IDParam(r, "tableID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sum, err := h.service.TableSummary(r.Context(), tableID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"occupied": sum != nil, "summary": sum})
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req CloseRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sess, err := h.service.CloseSession(r.Context(), id, req.Total)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	tableID, err := httpx.IDParam(r, "tableID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sess, err := h.service.ReleaseTable(r.Context(), tableID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	day, _, err := httpx.DateQuery(r, "date", h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	hist, err := h.service.History(r.Context(), day)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, hist)
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.PlaceOrder(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req StateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	o, err := h.service.AdvanceOrder(r.Context(), actor, id, OrderState(strings.ToLower(string(req.State))))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, OrderView{Order: o, LineTotal: o.Total()})
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req PaidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	o, err := h.service.MarkOrderPaid(r.Context(), id, req.Paid)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, OrderView{Order: o, LineTotal: o.Total()})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) kitchen(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.KitchenQueue(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	items, serverTime, err := h.service.ReadyNotifications(r.Context(), since)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"server_time":   serverTime,
	})
}

func parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSince, raw)
	}
	return t, nil
}
