// Package authz resolves what the current principal is allowed to do.
//
// The resolver loads a cached principal snapshot from the session store for
// an immediate, provisional answer, refreshes it from the backend profile
// endpoint, and exposes synchronous predicates (HasPermission, HasRole) that
// gates and route guards call on every render. The ADMIN bypass lives here,
// in one place, so every consumer inherits identical semantics.
package authz

import (
	"fmt"
	"strings"
)

// Action is the verb half of a permission token.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Resource is the noun half of a permission token. The set is open-ended —
// the backend may introduce new resources — but these are the ones the
// back-office screens gate on today.
type Resource string

const (
	ResourceUser    Resource = "USER"
	ResourceOrder   Resource = "ORDER"
	ResourceMenu    Resource = "MENU"
	ResourceManager Resource = "MANAGER"
	ResourceProduct Resource = "PRODUCT"
	ResourcePOS     Resource = "POS"
)

// Permission is a RESOURCE_ACTION capability, kept as a product type instead
// of a free-form string so typos fail at the resolver boundary rather than
// silently denying access.
type Permission struct {
	Resource Resource
	Action   Action
}

// Perm builds a permission from its halves.
func Perm(r Resource, a Action) Permission {
	return Permission{Resource: r, Action: a}
}

// String renders the wire token, e.g. "ORDER_READ".
func (p Permission) String() string {
	return string(p.Resource) + "_" + string(p.Action)
}

// ParsePermission validates a RESOURCE_ACTION token. The action must be one
// of the four CRUD verbs; the resource is any non-empty uppercase identifier
// (underscores allowed, so "STOCK_ENTRY_READ" parses as resource
// "STOCK_ENTRY").
func ParsePermission(token string) (Permission, error) {
	idx := strings.LastIndexByte(token, '_')
	if idx <= 0 || idx == len(token)-1 {
		return Permission{}, fmt.Errorf("authz: malformed permission %q", token)
	}

	resource, action := token[:idx], Action(token[idx+1:])
	switch action {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
	default:
		return Permission{}, fmt.Errorf("authz: unknown action in permission %q", token)
	}

	if !isUpperIdent(resource) {
		return Permission{}, fmt.Errorf("authz: malformed resource in permission %q", token)
	}

	return Permission{Resource: Resource(resource), Action: action}, nil
}

// MarshalText makes Permission serialize as its wire token in JSON.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses and validates the wire token.
func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := ParsePermission(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func isUpperIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r == '_' && i > 0 && i < len(s)-1:
		default:
			return false
		}
	}
	return true
}

// PermissionSet is an unordered set of permissions with exact-match lookup.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParsePermissions parses a list of wire tokens, skipping malformed entries
// and reporting how many were dropped. A profile response with a few bad
// tokens still yields a usable (smaller) set.
func ParsePermissions(tokens []string) (PermissionSet, int) {
	set := make(PermissionSet, len(tokens))
	dropped := 0
	for _, t := range tokens {
		p, err := ParsePermission(t)
		if err != nil {
			dropped++
			continue
		}
		set[p] = struct{}{}
	}
	return set, dropped
}

// Has reports exact membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Tokens returns the wire tokens of every permission in the set, in
// unspecified order.
func (s PermissionSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p.String())
	}
	return out
}
