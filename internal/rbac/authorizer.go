package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Authorizer resolves staff roles into permission sets.
type Authorizer struct {
	grants map[shared.Role]map[string]struct{}
}

// NewAuthorizer builds the role to permission table from the shared role profiles.
func NewAuthorizer() *Authorizer {
	grants := make(map[shared.Role]map[string]struct{}, 3)
	for _, role := range []shared.Role{shared.RoleAdmin, shared.RoleWaiter, shared.RoleKitchen} {
		set := make(map[string]struct{})
		for _, p := range shared.RolePermissions(role) {
			set[strings.ToLower(p)] = struct{}{}
		}
		grants[role] = set
	}
	return &Authorizer{grants: grants}
}

// Permissions lists the permissions granted to role.
func (a *Authorizer) Permissions(role shared.Role) []string {
	set := a.grants[role]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Allowed reports whether role holds perm.
func (a *Authorizer) Allowed(role shared.Role, perm string) bool {
	_, ok := a.grants[role][strings.ToLower(strings.TrimSpace(perm))]
	return ok
}

// Require returns a permission error unless the actor in ctx holds every perm.
func (a *Authorizer) Require(ctx context.Context, perms ...string) error {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: authentication required", shared.ErrPermission)
	}
	for _, p := range perms {
		if !a.Allowed(actor.Role, p) {
			return fmt.Errorf("%w: %s requires %s", shared.ErrPermission, actor.Role, p)
		}
	}
	return nil
}
