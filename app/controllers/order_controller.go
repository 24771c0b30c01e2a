package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sofrapos/sofra/app/models"
	"github.com/sofrapos/sofra/app/services"
	"github.com/sofrapos/sofra/internal/hub"
	"github.com/sofrapos/sofra/pkg/authz"
	"github.com/sofrapos/sofra/pkg/bind"
	"github.com/sofrapos/sofra/pkg/logger"
	"github.com/sofrapos/sofra/pkg/response"
	"github.com/sofrapos/sofra/pkg/sse"
	"github.com/sofrapos/sofra/pkg/token"
)

// OrderController exposes order CRUD plus the SSE event stream fallback for
// terminals that cannot hold a websocket open.
type OrderController struct {
	orders *services.OrderService
	hub    *hub.Hub
}

func NewOrderController(orders *services.OrderService, h *hub.Hub) *OrderController {
	return &OrderController{orders: orders, hub: h}
}

// Create handles POST /api/orders.
func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := token.FromCtx(r.Context())

	var in services.CreateOrderInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if len(errs) > 0 {
		response.ValidationError(w, errs)
		return
	}
	// Non-admins always create into their own branch.
	if claims != nil {
		in.ActorID = claims.UserID
		in.ActorRole = claims.Role
		if authz.ParseRole(claims.Role) != authz.RoleAdmin {
			in.Branch = claims.Branch
		}
	}

	order, err := c.orders.Create(in)
	if err != nil {
		if errors.Is(err, services.ErrUnknownBranch) {
			response.Error(w, http.StatusBadRequest, "Unknown branch")
			return
		}
		logger.WithCtx(r.Context()).Error("order create failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	response.Created(w, order)
}

type updateStatusInput struct {
	Status string `json:"status" validate:"required,in=PLACED,CONFIRMED,PREPARING,READY,COMPLETED,CANCELLED"`
}

// UpdateStatus handles POST /api/orders/{id}/status.
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var in updateStatusInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if len(errs) > 0 {
		response.ValidationError(w, errs)
		return
	}

	actorRole := ""
	if claims, ok := token.FromCtx(r.Context()); ok {
		actorRole = claims.Role
	}

	order, err := c.orders.UpdateStatus(uint(id), models.OrderStatus(in.Status), actorRole)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			response.NotFound(w)
		case errors.Is(err, services.ErrInvalidTransition):
			response.Error(w, http.StatusConflict, err.Error())
		default:
			logger.WithCtx(r.Context()).Error("order update failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	response.Success(w, order)
}

// Show handles GET /api/orders/{id}.
func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := c.orders.Get(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			response.NotFound(w)
			return
		}
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	response.Success(w, order)
}

// Index handles GET /api/orders. Admins see every branch; everyone else only
// their own.
func (c *OrderController) Index(w http.ResponseWriter, r *http.Request) {
	claims, _ := token.FromCtx(r.Context())

	branch := ""
	if claims != nil && authz.ParseRole(claims.Role) != authz.RoleAdmin {
		branch = claims.Branch
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := c.orders.List(branch, limit)
	if err != nil {
		if errors.Is(err, services.ErrUnknownBranch) {
			response.Error(w, http.StatusBadRequest, "Unknown branch")
			return
		}
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	response.Success(w, orders)
}

// Stream handles GET /api/orders/stream: the SSE fallback for the websocket
// hub. Events are filtered with the same visibility rule the hub applies:
// admins hear everything, others only their branch.
func (c *OrderController) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromCtx(r.Context())
	if !ok {
		response.Unauthorized(w)
		return
	}

	stream := sse.New(w, r)
	if stream == nil {
		return
	}

	frames, cancel := c.hub.Subscribe()
	defer cancel()

	admin := authz.ParseRole(claims.Role) == authz.RoleAdmin

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			stream.Comment("keepalive")
		case f, open := <-frames:
			if !open {
				return
			}
			if !admin && (claims.Branch == "" || f.Branch != claims.Branch) {
				continue
			}
			stream.SendRaw(string(f.Payload))
			if stream.IsClosed() {
				return
			}
		}
	}
}
