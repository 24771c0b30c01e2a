package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofrapos/sofra/pkg/authz"
	"github.com/sofrapos/sofra/pkg/gate"
	"github.com/sofrapos/sofra/pkg/session"
)

type failingFetcher struct{ err error }

func (f failingFetcher) FetchProfile(ctx context.Context, token string) (authz.Profile, error) {
	return authz.Profile{}, f.err
}

func TestGuardInitializingBeforeStart(t *testing.T) {
	g := &gate.Guard{Resolver: loadedResolver(t, "MANAGER", "downtown")}
	assert.Equal(t, gate.Initializing, g.Evaluate("/orders").State)

	g.Start()
	assert.Equal(t, gate.Authorized, g.Evaluate("/orders").State)
}

func TestGuardUnauthenticatedRedirectsWithCallback(t *testing.T) {
	r := authz.NewResolver(session.NewMemStore(), failingFetcher{err: authz.ErrUnauthenticated})
	_ = r.Refresh(context.Background())

	g := &gate.Guard{Resolver: r}
	g.Start()

	res := g.Evaluate("/orders/42?tab=items")
	assert.Equal(t, gate.Unauthenticated, res.State)
	assert.Equal(t, "/login?callback=%2Forders%2F42%3Ftab%3Ditems", res.RedirectTo)
}

func TestGuardLoadingForNonAdmin(t *testing.T) {
	r := authz.NewResolver(session.NewMemStore(), staticFetcher{})
	g := &gate.Guard{Resolver: r}
	g.Start()

	// No cached principal, refresh not attempted: still resolving.
	assert.Equal(t, gate.Loading, g.Evaluate("/orders").State)
}

func TestGuardCachedAdminAuthorizedWhileLoading(t *testing.T) {
	g := &gate.Guard{
		Resolver:    cachedResolver(t, authz.RoleAdmin),
		Permissions: []authz.Permission{authz.Perm(authz.ResourceUser, authz.ActionDelete)},
	}
	g.Start()
	assert.Equal(t, gate.Authorized, g.Evaluate("/settings/users").State)
}

func TestGuardNoPrincipalAfterErrorIsUnauthenticated(t *testing.T) {
	r := authz.NewResolver(session.NewMemStore(), failingFetcher{err: errors.New("gateway down")})
	_ = r.Refresh(context.Background())

	g := &gate.Guard{Resolver: r}
	g.Start()

	res := g.Evaluate("/orders")
	assert.Equal(t, gate.Unauthenticated, res.State)
	assert.Equal(t, "/login?callback=%2Forders", res.RedirectTo)
}

func TestGuardKitchenStaffDeniedPOSRoutes(t *testing.T) {
	r := loadedResolver(t, "KITCHEN_STAFF", "downtown")

	// The kitchen rule fires before any generic check: even a guard with no
	// requirements denies /pos to kitchen staff.
	g := &gate.Guard{Resolver: r}
	g.Start()

	for _, route := range []string{"/pos", "/pos/checkout", "/pos/tables/4"} {
		assert.Equal(t, gate.Unauthorized, g.Evaluate(route).State, "route %s", route)
	}

	// Outside the /pos family kitchen staff pass their own checks.
	kds := &gate.Guard{
		Resolver:    r,
		Permissions: []authz.Permission{authz.Perm(authz.ResourceOrder, authz.ActionUpdate)},
	}
	kds.Start()
	assert.Equal(t, gate.Authorized, kds.Evaluate("/kitchen").State)
}

func TestGuardUnauthorizedRedirectFlag(t *testing.T) {
	r := loadedResolver(t, "STAFF", "downtown")
	required := []authz.Permission{authz.Perm(authz.ResourceManager, authz.ActionRead)}

	inPlace := &gate.Guard{Resolver: r, Permissions: required}
	inPlace.Start()
	res := inPlace.Evaluate("/managers")
	assert.Equal(t, gate.Unauthorized, res.State)
	assert.Empty(t, res.RedirectTo)

	redirecting := &gate.Guard{Resolver: r, Permissions: required, RedirectOnDeny: true}
	redirecting.Start()
	res = redirecting.Evaluate("/managers")
	assert.Equal(t, gate.Unauthorized, res.State)
	assert.Equal(t, "/access-denied", res.RedirectTo)
}

func TestGuardRoleRequirement(t *testing.T) {
	g := &gate.Guard{
		Resolver: loadedResolver(t, "MANAGER", "downtown"),
		Roles:    []authz.Role{authz.RoleManager},
	}
	g.Start()
	require.Equal(t, gate.Authorized, g.Evaluate("/reports").State)

	staff := &gate.Guard{
		Resolver: loadedResolver(t, "STAFF", "downtown"),
		Roles:    []authz.Role{authz.RoleManager},
	}
	staff.Start()
	assert.Equal(t, gate.Unauthorized, staff.Evaluate("/reports").State)
}
