package authz

// Role is the coarse-grained category used for the admin bypass and for
// deriving default permissions when the backend omits an explicit list.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleManager      Role = "MANAGER"
	RoleStaff        Role = "STAFF"
	RoleKitchenStaff Role = "KITCHEN_STAFF"
	RoleCustomer     Role = "CUSTOMER"
)

// ParseRole maps a backend role string to a known role. Unknown or empty
// values fall back to the least-privileged role so a misbehaving backend can
// never widen access.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleStaff, RoleKitchenStaff, RoleCustomer:
		return Role(s)
	default:
		return RoleCustomer
	}
}

// roleDefaults is the static role→permission table used when a profile
// response carries no permission list.
var roleDefaults = map[Role][]Permission{
	RoleAdmin: adminDefaults(),
	RoleManager: {
		Perm(ResourceOrder, ActionRead),
		Perm(ResourceOrder, ActionUpdate),
		Perm(ResourceMenu, ActionRead),
		Perm(ResourceMenu, ActionUpdate),
		Perm(ResourceProduct, ActionRead),
		Perm(ResourceProduct, ActionUpdate),
		Perm(ResourceUser, ActionRead),
		Perm(ResourcePOS, ActionRead),
	},
	RoleStaff: {
		Perm(ResourceOrder, ActionRead),
		Perm(ResourceOrder, ActionCreate),
		Perm(ResourceMenu, ActionRead),
	},
	RoleKitchenStaff: {
		Perm(ResourceOrder, ActionRead),
		Perm(ResourceOrder, ActionUpdate),
	},
	RoleCustomer: {},
}

func adminDefaults() []Permission {
	resources := []Resource{ResourceUser, ResourceOrder, ResourceMenu, ResourceManager, ResourceProduct, ResourcePOS}
	actions := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

	perms := make([]Permission, 0, len(resources)*len(actions))
	for _, r := range resources {
		for _, a := range actions {
			perms = append(perms, Perm(r, a))
		}
	}
	return perms
}

// DefaultPermissions returns the static default set for a role. The returned
// set is freshly built; callers may mutate it.
func DefaultPermissions(role Role) PermissionSet {
	return NewPermissionSet(roleDefaults[ParseRole(string(role))]...)
}
