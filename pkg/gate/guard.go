package gate

import (
	"net/url"
	"strings"

	"github.com/sofrapos/sofra/pkg/authz"
)

// GuardState is where a guarded screen is in its authorization lifecycle.
type GuardState int

const (
	// Initializing: the screen has mounted but Start has not been called.
	Initializing GuardState = iota
	// Loading: the resolver is still fetching the profile.
	Loading
	// Authorized: render the screen.
	Authorized
	// Unauthorized: valid principal, insufficient role/permission.
	Unauthorized
	// Unauthenticated: no principal; redirect to login.
	Unauthenticated
)

func (s GuardState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "initializing"
	}
}

// Result tells the screen what to do. RedirectTo is set for the two redirect
// outcomes (login with callback, or the configured denied path).
type Result struct {
	State      GuardState
	RedirectTo string
}

// posRoutePrefix is the route family kitchen staff may never enter,
// regardless of any permission they hold. Checked before the generic checks.
const posRoutePrefix = "/pos"

// Guard protects a whole screen. Zero-value fields fall back to sensible
// defaults: LoginPath "/login", DeniedPath "/access-denied".
type Guard struct {
	Resolver    *authz.Resolver
	Roles       []authz.Role
	Permissions []authz.Permission

	// LoginPath receives unauthenticated principals, with the original route
	// carried in a callback parameter for post-login return.
	LoginPath string
	// DeniedPath is where unauthorized principals go when RedirectOnDeny is
	// set; otherwise the caller renders an access-denied view in place.
	DeniedPath     string
	RedirectOnDeny bool

	started bool
}

// Start marks client-side hydration complete, moving the guard out of
// Initializing. Call once after mount.
func (g *Guard) Start() {
	g.started = true
}

// Evaluate computes the guard state for the given route.
func (g *Guard) Evaluate(route string) Result {
	if !g.started {
		return Result{State: Initializing}
	}
	if g.Resolver == nil {
		return Result{State: Unauthenticated, RedirectTo: g.loginRedirect(route)}
	}

	principal, hasPrincipal := g.Resolver.Principal()

	switch g.Resolver.State() {
	case authz.StateUnauthenticated:
		return Result{State: Unauthenticated, RedirectTo: g.loginRedirect(route)}
	case authz.StateLoading, authz.StateError:
		if !g.Resolver.Loaded() {
			// Cached ADMIN passes immediately; everyone else waits. A
			// terminal with no cached principal at all has nothing to wait
			// for once the resolver has settled into an error.
			if hasPrincipal && principal.Role == authz.RoleAdmin {
				return g.checkKitchen(principal, route)
			}
			if !hasPrincipal && g.Resolver.State() == authz.StateError {
				return Result{State: Unauthenticated, RedirectTo: g.loginRedirect(route)}
			}
			return Result{State: Loading}
		}
	}

	if !hasPrincipal {
		return Result{State: Unauthenticated, RedirectTo: g.loginRedirect(route)}
	}

	return g.checkKitchen(principal, route)
}

// checkKitchen applies the hard-coded kitchen rule, then the generic checks.
func (g *Guard) checkKitchen(principal authz.Principal, route string) Result {
	if principal.Role == authz.RoleKitchenStaff && strings.HasPrefix(route, posRoutePrefix) {
		return g.deny()
	}

	if len(g.Roles) > 0 && !g.Resolver.HasRole(g.Roles...) {
		return g.deny()
	}
	if !g.Resolver.HasPermission(g.Permissions...) {
		return g.deny()
	}

	return Result{State: Authorized}
}

func (g *Guard) deny() Result {
	if g.RedirectOnDeny {
		path := g.DeniedPath
		if path == "" {
			path = "/access-denied"
		}
		return Result{State: Unauthorized, RedirectTo: path}
	}
	return Result{State: Unauthorized}
}

func (g *Guard) loginRedirect(route string) string {
	path := g.LoginPath
	if path == "" {
		path = "/login"
	}
	if route == "" {
		return path
	}
	return path + "?callback=" + url.QueryEscape(route)
}
