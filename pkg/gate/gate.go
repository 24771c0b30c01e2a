// Package gate decides whether a piece of terminal UI may be shown, and
// whether a whole screen may be entered. It layers declarative checks on top
// of the authz resolver so screens never re-implement predicate logic.
package gate

import (
	"github.com/sofrapos/sofra/pkg/authz"
)

// Mode selects what a denied gate does with its guarded element.
type Mode int

const (
	// Hide removes the element entirely (default).
	Hide Mode = iota
	// Disable keeps the element visible but non-interactive.
	Disable
)

// Outcome is the gate's verdict for the guarded element.
type Outcome int

const (
	// Show renders the children unchanged.
	Show Outcome = iota
	// Hidden renders the fallback (usually nothing).
	Hidden
	// Disabled renders the children in a disabled visual state.
	Disabled
)

// Gate is a declarative UI guard. Roles are checked first: failing a role
// requirement short-circuits to denied and the permission list is never
// consulted. Permission lists use OR semantics.
//
// Loading behavior is inherited from the resolver: non-admin principals are
// denied until the first refresh completes, a cached ADMIN passes
// immediately.
type Gate struct {
	Resolver    *authz.Resolver
	Roles       []authz.Role
	Permissions []authz.Permission
	Mode        Mode
}

// Allowed reports whether the guarded element may be interacted with.
func (g Gate) Allowed() bool {
	if g.Resolver == nil {
		return false
	}
	if len(g.Roles) > 0 && !g.Resolver.HasRole(g.Roles...) {
		return false
	}
	return g.Resolver.HasPermission(g.Permissions...)
}

// Evaluate returns what the caller should render.
func (g Gate) Evaluate() Outcome {
	if g.Allowed() {
		return Show
	}
	if g.Mode == Disable {
		return Disabled
	}
	return Hidden
}
