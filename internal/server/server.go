// Package server boots the Sofra gateway: database, audit sink, websocket
// hub, and the HTTP surface, with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sofrapos/sofra/app/controllers"
	"github.com/sofrapos/sofra/app/repositories"
	"github.com/sofrapos/sofra/app/routes"
	"github.com/sofrapos/sofra/app/services"
	"github.com/sofrapos/sofra/config"
	"github.com/sofrapos/sofra/internal/hub"
	"github.com/sofrapos/sofra/pkg/audit"
	"github.com/sofrapos/sofra/pkg/database"
	"github.com/sofrapos/sofra/pkg/logger"
	"github.com/sofrapos/sofra/pkg/metrics"
	"github.com/sofrapos/sofra/pkg/middleware"
	"github.com/sofrapos/sofra/pkg/reqid"
	"github.com/sofrapos/sofra/pkg/router"
)

const shutdownTimeout = 15 * time.Second

// Start runs the gateway until it receives SIGINT or SIGTERM.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	if err := database.Connect(); err != nil {
		return err
	}

	if uri := config.MongoURI(); uri != "" {
		if err := audit.Connect(uri, config.AuditDB(), config.AuditCollection()); err != nil {
			// The gateway can serve without the audit trail; log and move on.
			logger.Warn("audit sink unavailable", "error", err)
		} else {
			defer audit.Close()
		}
	}

	h := hub.New(config.JWTSecret())
	go h.Run()

	r := buildRouter(h)

	srv := &http.Server{
		Addr:         ":" + config.AppPort(),
		Handler:      r.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket and SSE connections stay open
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sofra gateway listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// buildRouter assembles the middleware stack and mounts all routes.
func buildRouter(h *hub.Hub) *router.Router {
	r := router.New()

	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)

	cors := middleware.DefaultCORSOptions()
	if origins := config.CORSOrigins(); len(origins) > 0 {
		cors.AllowedOrigins = origins
	}
	r.Use(middleware.CORS(cors))

	userRepo := repositories.NewUserRepository(database.DB)
	orderRepo := repositories.NewOrderRepository(database.DB)

	authSvc := services.NewAuthService(userRepo)
	orderSvc := services.NewOrderService(orderRepo, h)

	authCtl := controllers.NewAuthController(authSvc)
	orderCtl := controllers.NewOrderController(orderSvc, h)

	routes.Register(r, authCtl, orderCtl, h)
	return r
}
