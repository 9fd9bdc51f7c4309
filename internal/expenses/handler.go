package expenses

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

// Handler exposes expense, payable, provider, budget and staff meal endpoints.
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

// MountExpenses registers /expenses routes.
func (h *Handler) MountExpenses(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermExpenseView))
		r.Get("/", h.list)
		r.Get("/categories", h.listCategories)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermExpenseCreate))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.With(h.rbac.RequireAny(shared.PermExpenseDelete)).Delete("/{id}", h.delete)
	r.With(h.rbac.RequireAny(shared.PermExpenseApprove)).Post("/{id}/approve", h.approve)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCategoryManage))
		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Post("/categories/{id}/toggle", h.toggleCategory)
	})
}

// MountPayables registers /payables routes.
func (h *Handler) MountPayables(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermPayableView)).Get("/", h.payables)
	r.With(h.rbac.RequireAny(shared.PermPayablePay)).Post("/{id}/pay", h.markPaid)
	r.With(h.rbac.RequireAny(shared.PermPayableDueDate)).Put("/{id}/due-date", h.setDueDate)
}

// MountProviders registers /providers routes.
func (h *Handler) MountProviders(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProviderView))
		r.Get("/", h.listProviders)
		r.Get("/{id}", h.getProvider)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProviderManage))
		r.Post("/", h.createProvider)
		r.Put("/{id}", h.updateProvider)
	})
	r.With(h.rbac.RequireAny(shared.PermProviderToggle)).Post("/{id}/toggle", h.toggleProvider)
}

// MountBudgets registers /budgets routes.
func (h *Handler) MountBudgets(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermBudgetView)).Get("/", h.overview)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBudgetManage))
		r.Post("/", h.createBudget)
		r.Post("/copy-next-month", h.copyBudgets)
		r.Put("/{id}", h.updateBudget)
		r.Post("/{id}/deactivate", h.deactivateBudget)
	})
}

// MountStaffMeals registers /staff-meals routes.
func (h *Handler) MountStaffMeals(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermStaffMealView)).Get("/", h.staffMeals)
	r.With(h.rbac.RequireAny(shared.PermStaffMealCreate)).Post("/", h.recordStaffMeal)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
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
	categoryID, err := httpx.Int64Query(r, "category_id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.List(r.Context(), Filter{From: from, To: to, CategoryID: categoryID})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	out, err := h.service.RecordExpense(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req ExpenseRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	out, err := h.service.UpdateExpense(r.Context(), actor, id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.DeleteExpense(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	e, err := h.service.ApproveExpense(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) payables(w http.ResponseWriter, r *http.Request) {
	providerID, err := httpx.Int64Query(r, "provider_id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	out, err := h.service.Payables(r.Context(), PayableFilter{Status: status, ProviderID: providerID})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	e, err := h.service.MarkExpensePaid(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) setDueDate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req DueDateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	e, err := h.service.SetDueDate(r.Context(), id, req.DueDate)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Categories(r.Context(), r.URL.Query().Get("all") == "true")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req CategoryRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) toggleCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.ToggleCategory(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Providers(r.Context(), r.URL.Query().Get("all") == "true")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getProvider(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.GetProvider(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createProvider(w http.ResponseWriter, r *http.Request) {
	var req ProviderRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.CreateProvider(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProvider(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req ProviderRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.UpdateProvider(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) toggleProvider(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.ToggleProvider(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	month, err := httpx.IntQuery(r, "month", 0)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	year, err := httpx.IntQuery(r, "year", 0)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.BudgetOverview(r.Context(), month, year)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	b, err := h.service.CreateBudget(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) updateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req BudgetUpdateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	b, err := h.service.UpdateBudget(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) deactivateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if err := h.service.DeactivateBudget(r.Context(), id); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) copyBudgets(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.CopyBudgetsToNextMonth(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) staffMeals(w http.ResponseWriter, r *http.Request) {
	day, _, err := httpx.DateQuery(r, "date", h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.StaffMeals(r.Context(), day)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) recordStaffMeal(w http.ResponseWriter, r *http.Request) {
	var req StaffMealRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	m, err := h.service.RecordStaffMeal(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}
