package invoicing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler exposes invoice and receivables endpoints.
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

// MountRoutes registers /invoices and /receivables.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermInvoiceView))
			r.Get("/", h.list)
			r.Get("/{id}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermInvoiceCreate))
			r.Post("/sessions/{id}", h.invoiceSession)
			r.Post("/deliveries/{id}", h.invoiceDelivery)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermInvoicePayment))
			r.Post("/{id}/payments", h.payment)
			r.Post("/{id}/paid", h.markPaid)
		})
		r.With(h.rbac.RequireAny(shared.PermInvoiceEdit)).Put("/{id}", h.update)
		r.With(h.rbac.RequireAny(shared.PermInvoiceDelete)).Delete("/{id}", h.delete)
	})
	r.With(h.rbac.RequireAny(shared.PermReceivableView)).Get("/receivables", h.receivables)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	day, _, err := httpx.DateQuery(r, "date", h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	invoices, err := h.service.List(r.Context(), day)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) invoiceSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req SessionInvoiceRequest
	if err := httpx.DecodeOptional(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	inv, err := h.service.InvoiceSession(r.Context(), actor, id, req, r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) invoiceDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req DeliveryInvoiceRequest
	if err := httpx.DecodeOptional(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	inv, err := h.service.InvoiceDelivery(r.Context(), actor, id, req, r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
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
	inv, err := h.service.UpdateInvoice(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if _, err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req PaymentRequest
	if err := httpx.DecodeOptional(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.RecordPartialPayment(r.Context(), id, req.Amount)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	inv, err := h.service.MarkPaid(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) receivables(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Receivables(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
