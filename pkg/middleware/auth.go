package middleware

import (
	"net/http"
	"strings"

	"github.com/sofrapos/sofra/config"
	"github.com/sofrapos/sofra/pkg/response"
	"github.com/sofrapos/sofra/pkg/token"
)

// Auth validates the Bearer token and injects its claims into the request
// context for the authz middleware and handlers downstream.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			response.Unauthorized(w)
			return
		}

		claims, err := token.Validate(config.JWTSecret(), raw)
		if err != nil {
			response.Unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(token.WithClaims(r.Context(), claims)))
	})
}
