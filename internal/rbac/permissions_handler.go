package rbac

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
)

// PermissionsHandler exposes the permission set of the current actor so clients
// can hide actions the role cannot perform.
type PermissionsHandler struct {
	authorizer *Authorizer
	rbac       Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(authorizer *Authorizer, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{authorizer: authorizer, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/me", h.mine)
	})
}

func (h *PermissionsHandler) mine(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	perms := h.authorizer.Permissions(actor.Role)
	sort.Strings(perms)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        actor.Role,
		"permissions": perms,
	})
}
