// Package routes wires the gateway's HTTP surface: auth, orders, the
// websocket hub, and the SSE fallback stream.
package routes

import (
	"net/http"
	"time"

	"github.com/sofrapos/sofra/app/controllers"
	"github.com/sofrapos/sofra/internal/hub"
	"github.com/sofrapos/sofra/pkg/authz"
	"github.com/sofrapos/sofra/pkg/metrics"
	"github.com/sofrapos/sofra/pkg/middleware"
	"github.com/sofrapos/sofra/pkg/response"
	"github.com/sofrapos/sofra/pkg/router"
)

// Register mounts every route on r.
func Register(r *router.Router, auth *controllers.AuthController, orders *controllers.OrderController, h *hub.Hub) {
	r.Get("/health", "health", func(w http.ResponseWriter, req *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", "metrics", metrics.Handler().ServeHTTP)

	// Terminals authenticate on the socket itself with an auth control frame,
	// so no Bearer middleware here.
	r.Get("/ws/orders", "ws.orders", h.ServeWS)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", "auth.login", auth.Login,
		middleware.RateLimit(20, time.Minute))
	authGroup.Post("/logout", "auth.logout", auth.Logout, middleware.Auth)
	authGroup.Get("/profile", "auth.profile", auth.Profile, middleware.Auth)

	orderGroup := api.Group("/orders", middleware.Auth)
	orderGroup.Get("/", "orders.index", orders.Index,
		authz.RequirePermission(authz.Perm(authz.ResourceOrder, authz.ActionRead)))
	orderGroup.Post("/", "orders.create", orders.Create,
		authz.RequirePermission(authz.Perm(authz.ResourceOrder, authz.ActionCreate)))
	orderGroup.Get("/stream", "orders.stream", orders.Stream,
		authz.RequirePermission(authz.Perm(authz.ResourceOrder, authz.ActionRead)))
	orderGroup.Get("/{id}", "orders.show", orders.Show,
		authz.RequirePermission(authz.Perm(authz.ResourceOrder, authz.ActionRead)))
	orderGroup.Post("/{id}/status", "orders.update_status", orders.UpdateStatus,
		authz.RequirePermission(authz.Perm(authz.ResourceOrder, authz.ActionUpdate)))

	// POS surface. Kitchen staff hold no POS_READ permission, so they are
	// denied here just as the terminal route guard blocks them from /pos.
	posGroup := api.Group("/pos", middleware.Auth,
		authz.RequirePermission(authz.Perm(authz.ResourcePOS, authz.ActionRead)))
	posGroup.Get("/orders", "pos.orders", orders.Index)
}
