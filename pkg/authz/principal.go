package authz

import "encoding/json"

// Principal is the authenticated identity driving every authorization
// decision. The Branch field is the canonical branch ID; display names are
// never used for matching.
type Principal struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Role        Role         `json:"role"`
	Branch      string       `json:"branch,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// Profile is the raw shape of the backend profile response. Permissions and
// role arrive as untyped strings and are validated when resolved into a
// Principal.
type Profile struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Branch      string   `json:"branch,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// resolve turns a profile into a principal plus its permission set. A missing
// permission list falls back to the static role defaults; malformed tokens in
// a present list are dropped, not fatal.
func resolve(p Profile) (Principal, PermissionSet, int) {
	role := ParseRole(p.Role)

	var set PermissionSet
	dropped := 0
	if len(p.Permissions) > 0 {
		set, dropped = ParsePermissions(p.Permissions)
	} else {
		set = DefaultPermissions(role)
	}

	perms := make([]Permission, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}

	principal := Principal{
		ID:          p.ID,
		Email:       p.Email,
		Name:        p.Name,
		Role:        role,
		Branch:      p.Branch,
		Permissions: perms,
	}
	return principal, set, dropped
}

// decodeSnapshot parses a cached principal snapshot. Any decode failure, or a
// snapshot containing an invalid permission token, returns false so the
// caller discards it silently.
func decodeSnapshot(raw []byte) (Principal, PermissionSet, bool) {
	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return Principal{}, nil, false
	}
	if p.ID == "" {
		return Principal{}, nil, false
	}

	p.Role = ParseRole(string(p.Role))
	set := NewPermissionSet(p.Permissions...)
	return p, set, true
}
