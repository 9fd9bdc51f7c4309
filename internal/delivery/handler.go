package delivery

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler exposes delivery, courier and zone endpoints.
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

// MountDeliveries registers /deliveries routes.
func (h *Handler) MountDeliveries(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDeliveryView))
		r.Get("/", h.list)
		r.Get("/active", h.active)
		r.Get("/{id}", h.get)
	})
	r.With(h.rbac.RequireAny(shared.PermDeliveryCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAny(shared.PermDeliveryEdit)).Put("/{id}", h.update)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDeliveryState))
		r.Post("/{id}/state", h.transition)
		r.Post("/{id}/courier", h.assign)
	})
	r.With(h.rbac.RequireAny(shared.PermDeliveryCancel)).Post("/{id}/cancel", h.cancel)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDeliveryKitchen))
		r.Get("/kitchen", h.kitchen)
		r.Post("/items/{itemID}/state", h.itemState)
	})
}

// MountCouriers registers /couriers routes.
func (h *Handler) MountCouriers(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermDeliveryView)).Get("/", h.listCouriers)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCourierManage))
		r.Post("/", h.createCourier)
		r.Put("/{id}", h.updateCourier)
		r.Post("/{id}/toggle", h.toggleCourier)
	})
}

// MountZones registers /zones routes.
func (h *Handler) MountZones(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermZoneView))
		r.Get("/", h.listZones)
		r.Post("/quote", h.quote)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermZoneManage))
		r.Post("/", h.createZone)
		r.Put("/{id}", h.updateZone)
		r.Post("/{id}/toggle", h.toggleZone)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	day, _, err := httpx.DateQuery(r, "date", h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	f := Filter{Day: day, State: State(strings.ToLower(r.URL.Query().Get("state")))}
	list, err := h.service.List(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Active(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) kitchen(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.KitchenBoard(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	d, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	d, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	d, err := h.service.Transition(r.Context(), id, State(strings.ToLower(string(req.State))), req.CourierID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req CourierAssignment
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	d, err := h.service.AssignCourier(r.Context(), id, req.CourierID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req CancelRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	d, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) itemState(w http.ResponseWriter, r *http.Request) {
	itemID, err := httpx.IDParam(r, "itemID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req ItemStateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	res, err := h.service.SetItemKitchenState(r.Context(), itemID, KitchenState(strings.ToLower(string(req.State))))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func activeOnly(r *http.Request) bool {
	return r.URL.Query().Get("all") != "true"
}

func (h *Handler) listCouriers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Couriers(r.Context(), activeOnly(r))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) createCourier(w http.ResponseWriter, r *http.Request) {
	var req CourierRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.CreateCourier(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCourier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req CourierRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.UpdateCourier(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) toggleCourier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.ToggleCourier(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listZones(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Zones(r.Context(), activeOnly(r))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	q, err := h.service.QuoteFee(r.Context(), req.Neighborhood)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) createZone(w http.ResponseWriter, r *http.Request) {
	var req ZoneRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	z, err := h.service.CreateZone(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, z)
}

func (h *Handler) updateZone(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req ZoneRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	z, err := h.service.UpdateZone(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, z)
}

func (h *Handler) toggleZone(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	z, err := h.service.ToggleZone(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, z)
}
