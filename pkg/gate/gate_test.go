package gate_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofrapos/sofra/pkg/authz"
	"github.com/sofrapos/sofra/pkg/gate"
	"github.com/sofrapos/sofra/pkg/session"
)

type staticFetcher struct{ profile authz.Profile }

func (f staticFetcher) FetchProfile(ctx context.Context, token string) (authz.Profile, error) {
	return f.profile, nil
}

// loadedResolver returns a resolver that has completed its first refresh for
// the given role.
func loadedResolver(t *testing.T, role string, branch string) *authz.Resolver {
	t.Helper()
	r := authz.NewResolver(session.NewMemStore(), staticFetcher{profile: authz.Profile{
		ID: "u-1", Role: role, Branch: branch,
	}})
	require.NoError(t, r.Refresh(context.Background()))
	return r
}

// cachedResolver returns a resolver holding only a cached snapshot, first
// refresh not yet completed.
func cachedResolver(t *testing.T, role authz.Role) *authz.Resolver {
	t.Helper()
	store := session.NewMemStore()
	raw, err := json.Marshal(authz.Principal{ID: "u-1", Role: role})
	require.NoError(t, err)
	require.NoError(t, store.SavePrincipal(raw))

	r := authz.NewResolver(store, staticFetcher{})
	r.LoadCached()
	return r
}

func TestGateHideAndDisableModes(t *testing.T) {
	r := loadedResolver(t, "STAFF", "downtown")
	denied := []authz.Permission{authz.Perm(authz.ResourceUser, authz.ActionDelete)}

	hidden := gate.Gate{Resolver: r, Permissions: denied}
	assert.Equal(t, gate.Hidden, hidden.Evaluate())

	disabled := gate.Gate{Resolver: r, Permissions: denied, Mode: gate.Disable}
	assert.Equal(t, gate.Disabled, disabled.Evaluate())

	allowed := gate.Gate{Resolver: r, Permissions: []authz.Permission{
		authz.Perm(authz.ResourceOrder, authz.ActionCreate),
	}}
	assert.Equal(t, gate.Show, allowed.Evaluate())
}

func TestGateRoleCheckShortCircuits(t *testing.T) {
	r := loadedResolver(t, "STAFF", "downtown")

	// Staff holds ORDER_READ, but the role requirement fails first.
	g := gate.Gate{
		Resolver:    r,
		Roles:       []authz.Role{authz.RoleManager},
		Permissions: []authz.Permission{authz.Perm(authz.ResourceOrder, authz.ActionRead)},
	}
	assert.False(t, g.Allowed())
}

func TestGateEmptyRequirementsShow(t *testing.T) {
	r := loadedResolver(t, "CUSTOMER", "")
	g := gate.Gate{Resolver: r}
	assert.Equal(t, gate.Show, g.Evaluate())
}

func TestGateAdminBypassWhileLoading(t *testing.T) {
	g := gate.Gate{
		Resolver:    cachedResolver(t, authz.RoleAdmin),
		Roles:       []authz.Role{authz.RoleManager},
		Permissions: []authz.Permission{authz.Perm(authz.ResourceUser, authz.ActionDelete)},
	}
	assert.True(t, g.Allowed())

	nonAdmin := gate.Gate{
		Resolver:    cachedResolver(t, authz.RoleManager),
		Permissions: []authz.Permission{authz.Perm(authz.ResourceOrder, authz.ActionRead)},
	}
	assert.False(t, nonAdmin.Allowed())
}

func TestGateNilResolverDenies(t *testing.T) {
	g := gate.Gate{}
	assert.False(t, g.Allowed())
	assert.Equal(t, gate.Hidden, g.Evaluate())
}
