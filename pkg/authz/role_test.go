package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sofrapos/sofra/pkg/authz"
)

func TestParseRoleUnknownFallsBackToCustomer(t *testing.T) {
	assert.Equal(t, authz.RoleAdmin, authz.ParseRole("ADMIN"))
	assert.Equal(t, authz.RoleKitchenStaff, authz.ParseRole("KITCHEN_STAFF"))

	// Unknown and empty values get the least-privileged role.
	assert.Equal(t, authz.RoleCustomer, authz.ParseRole(""))
	assert.Equal(t, authz.RoleCustomer, authz.ParseRole("SUPERUSER"))
	assert.Equal(t, authz.RoleCustomer, authz.ParseRole("admin"))
}

func TestDefaultPermissions(t *testing.T) {
	admin := authz.DefaultPermissions(authz.RoleAdmin)
	// Full CRUD over six resources.
	assert.Len(t, admin, 24)
	assert.True(t, admin.Has(authz.Perm(authz.ResourceManager, authz.ActionDelete)))

	staff := authz.DefaultPermissions(authz.RoleStaff)
	assert.True(t, staff.Has(authz.Perm(authz.ResourceOrder, authz.ActionCreate)))
	assert.True(t, staff.Has(authz.Perm(authz.ResourceMenu, authz.ActionRead)))
	assert.False(t, staff.Has(authz.Perm(authz.ResourceOrder, authz.ActionUpdate)))

	kitchen := authz.DefaultPermissions(authz.RoleKitchenStaff)
	assert.True(t, kitchen.Has(authz.Perm(authz.ResourceOrder, authz.ActionUpdate)))
	assert.False(t, kitchen.Has(authz.Perm(authz.ResourcePOS, authz.ActionRead)))

	assert.Empty(t, authz.DefaultPermissions(authz.RoleCustomer))
	// Unknown roles resolve through ParseRole, so they get customer defaults.
	assert.Empty(t, authz.DefaultPermissions(authz.Role("SUPERUSER")))
}
