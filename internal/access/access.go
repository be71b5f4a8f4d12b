// Package access decides whether a principal may perform a gated action.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/permissions"
)

// Role classifies a principal.
type Role string

const (
	RoleCandidate       Role = "candidate"
	RoleManager         Role = "manager"
	RoleServiceProvider Role = "service_provider"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleManager, RoleServiceProvider:
		return true
	}
	return false
}

// Grant is the authorization view of a principal: its role plus, for
// managers, the capability set it holds.
type Grant struct {
	PrincipalID uuid.UUID
	Role        Role
	Permissions permissions.Set
}

// GrantSource loads the authorization view for a principal.
type GrantSource interface {
	GrantFor(ctx context.Context, principalID uuid.UUID) (Grant, error)
}

// CanAct reports whether the grant allows the capability. Only manager
// principals ever pass; everyone else is denied regardless of stored flags.
func CanAct(g Grant, c permissions.Capability) bool {
	if g.Role != RoleManager {
		return false
	}
	return g.Permissions.Has(c)
}

// RequireFullAccess reports whether the grant carries the full-access
// override. Gates the most sensitive admin surfaces.
func RequireFullAccess(g Grant) bool {
	return g.Role == RoleManager && g.Permissions.FullAccess()
}

// RequireAny reports whether at least one of the capabilities is granted.
func RequireAny(g Grant, caps ...permissions.Capability) bool {
	for _, c := range caps {
		if CanAct(g, c) {
			return true
		}
	}
	return false
}
