package authz

import (
	"net/http"

	"github.com/sofrapos/sofra/pkg/audit"
	"github.com/sofrapos/sofra/pkg/metrics"
	"github.com/sofrapos/sofra/pkg/response"
	"github.com/sofrapos/sofra/pkg/token"
)

// RequireRole returns middleware that allows only the given roles through.
// Requires the auth middleware to have validated the JWT and stored claims in
// the request context. ADMIN always passes.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[ParseRole(string(r))] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := token.FromCtx(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}

			role := ParseRole(claims.Role)
			if role != RoleAdmin && !allowed[role] {
				deny(w, r, claims, "role")
				return
			}

			metrics.AuthzDecisions.WithLabelValues("allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission returns middleware that allows principals holding at
// least one of the given permissions (OR semantics). Claims without an
// explicit permission list fall back to the role defaults, mirroring the
// resolver's behavior on the terminal side.
func RequirePermission(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := token.FromCtx(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}

			if !claimsAllow(claims, perms) {
				deny(w, r, claims, "permission")
				return
			}

			metrics.AuthzDecisions.WithLabelValues("allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// claimsAllow evaluates the OR-semantics permission check against JWT claims,
// with the centralized ADMIN bypass.
func claimsAllow(claims *token.Claims, required []Permission) bool {
	if len(required) == 0 {
		return true
	}
	if ParseRole(claims.Role) == RoleAdmin {
		return true
	}

	var set PermissionSet
	if len(claims.Permissions) > 0 {
		set, _ = ParsePermissions(claims.Permissions)
	} else {
		set = DefaultPermissions(ParseRole(claims.Role))
	}

	for _, p := range required {
		if set.Has(p) {
			return true
		}
	}
	return false
}

func deny(w http.ResponseWriter, r *http.Request, claims *token.Claims, kind string) {
	metrics.AuthzDecisions.WithLabelValues("denied").Inc()
	audit.Record(audit.Entry{
		Kind:   "authz_denied",
		Actor:  claims.Email,
		Role:   claims.Role,
		Branch: claims.Branch,
		Detail: kind + " check failed for " + r.Method + " " + r.URL.Path,
	})
	response.Forbidden(w)
}
