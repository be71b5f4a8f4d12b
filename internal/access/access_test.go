package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxis-platform/praxis/internal/permissions"
)

func managerGrant(t *testing.T, caps ...permissions.Capability) Grant {
	t.Helper()
	flags := make(map[permissions.Capability]bool)
	for _, c := range caps {
		flags[c] = true
	}
	set, err := permissions.FromFlags(flags)
	require.NoError(t, err)
	return Grant{PrincipalID: uuid.New(), Role: RoleManager, Permissions: set}
}

func TestCanActRequiresManagerRole(t *testing.T) {
	set, err := permissions.FromFlags(map[permissions.Capability]bool{permissions.ManageCourses: true})
	require.NoError(t, err)

	for _, role := range []Role{RoleCandidate, RoleServiceProvider} {
		g := Grant{PrincipalID: uuid.New(), Role: role, Permissions: set}
		assert.False(t, CanAct(g, permissions.ManageCourses), "role %s must never act", role)
	}

	g := Grant{PrincipalID: uuid.New(), Role: RoleManager, Permissions: set}
	assert.True(t, CanAct(g, permissions.ManageCourses))
	assert.False(t, CanAct(g, permissions.ManageInternships))
}

func TestCanActWithFullAccess(t *testing.T) {
	g := Grant{PrincipalID: uuid.New(), Role: RoleManager, Permissions: permissions.WithFullAccess()}
	for _, c := range permissions.All() {
		assert.True(t, CanAct(g, c))
	}
}

func TestRequireAny(t *testing.T) {
	g := managerGrant(t, permissions.RejectApplications)

	assert.True(t, RequireAny(g, permissions.ApproveApplications, permissions.RejectApplications))
	assert.False(t, RequireAny(g, permissions.ApproveApplications, permissions.ManageCourses))
	assert.False(t, RequireAny(g))
}

func TestRequireFullAccess(t *testing.T) {
	assert.False(t, RequireFullAccess(managerGrant(t, permissions.ManageCourses)))
	assert.True(t, RequireFullAccess(Grant{Role: RoleManager, Permissions: permissions.WithFullAccess()}))
	// Full access on a non-manager grant is inert.
	assert.False(t, RequireFullAccess(Grant{Role: RoleCandidate, Permissions: permissions.WithFullAccess()}))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleCandidate.Valid())
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleServiceProvider.Valid())
	assert.False(t, Role("admin").Valid())
}
