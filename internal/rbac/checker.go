package rbac

import (
	"context"
	"strings"
)

// Roles.
const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleStudent    = "STUDENT"
)

func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleInstructor || r == RoleStudent
}

// Identity is the authenticated caller, passed explicitly into services.
type Identity struct {
	UserID string
	Role   string
}

func (id Identity) IsAdmin() bool      { return id.Role == RoleAdmin }
func (id Identity) IsInstructor() bool { return id.Role == RoleInstructor }
func (id Identity) IsStudent() bool    { return id.Role == RoleStudent }

// Can reports whether the identity's role grants perm under the default policy.
func (id Identity) Can(perm string) bool { return defaultChecker.Has(id.Role, perm) }

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	perms, ok := c.RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == "*" || matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- identity in context ----

type ctxKey struct{}

var ctxKeyIdentity = ctxKey{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok && id.UserID != ""
}
