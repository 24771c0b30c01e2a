package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/sofrapos/sofra/app/models"
	"github.com/sofrapos/sofra/app/repositories"
	"github.com/sofrapos/sofra/internal/hub"
	"github.com/sofrapos/sofra/pkg/audit"
	"github.com/sofrapos/sofra/pkg/logger"
)

var (
	ErrUnknownBranch     = errors.New("unknown branch")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions is the order lifecycle. An order may only move along these
// edges; anything else is rejected before it reaches the database.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPlaced:    {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady, models.StatusCancelled},
	models.StatusReady:     {models.StatusCompleted},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService owns order creation and lifecycle, pushing every change to
// the websocket hub so terminals in the order's branch hear about it.
type OrderService struct {
	orders *repositories.OrderRepository
	hub    *hub.Hub
}

func NewOrderService(orders *repositories.OrderRepository, h *hub.Hub) *OrderService {
	return &OrderService{orders: orders, hub: h}
}

// CreateOrderInput is the payload for a new order. Branch is filled from the
// actor's claims for non-admins, so it is validated in the service, not here.
type CreateOrderInput struct {
	Branch    string  `json:"branch"`
	Total     float64 `json:"total" validate:"nullable,gte=0"`
	ActorID   uint    `json:"-"`
	ActorRole string  `json:"-"`
}

// Create places a new order in the given branch and publishes a new-order
// event.
func (s *OrderService) Create(in CreateOrderInput) (models.Order, error) {
	branch, err := s.orders.FindBranchByCode(in.Branch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrUnknownBranch
		}
		return models.Order{}, err
	}

	order := models.Order{
		Number:      newOrderNumber(),
		Status:      models.StatusPlaced,
		Total:       in.Total,
		BranchID:    branch.ID,
		Branch:      branch,
		CreatedByID: in.ActorID,
	}
	if err := s.orders.Create(&order); err != nil {
		return models.Order{}, err
	}

	s.hub.PublishNewOrder(s.payload(&order, in.ActorRole))
	audit.Record(audit.Entry{
		Kind:   "order_created",
		Actor:  strconv.FormatUint(uint64(in.ActorID), 10),
		Role:   in.ActorRole,
		Branch: branch.Code,
		Detail: order.Number,
	})
	logger.Info("order created", "number", order.Number, "branch", branch.Code)
	return order, nil
}

// UpdateStatus moves an order along its lifecycle and publishes an
// order-updated event.
func (s *OrderService) UpdateStatus(id uint, status models.OrderStatus, actorRole string) (models.Order, error) {
	order, err := s.orders.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}

	if !canTransition(order.Status, status) {
		return models.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	order.Status = status
	if err := s.orders.Update(&order); err != nil {
		return models.Order{}, err
	}

	s.hub.PublishOrderUpdated(s.payload(&order, actorRole))
	audit.Record(audit.Entry{
		Kind:   "order_updated",
		Role:   actorRole,
		Branch: order.Branch.Code,
		Detail: fmt.Sprintf("%s -> %s", order.Number, status),
	})
	return order, nil
}

// Get returns one order by id.
func (s *OrderService) Get(id uint) (models.Order, error) {
	order, err := s.orders.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, ErrOrderNotFound
	}
	return order, err
}

// List returns recent orders, branch-scoped unless branch is empty (admins).
func (s *OrderService) List(branchCode string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if branchCode == "" {
		return s.orders.List(limit)
	}
	branch, err := s.orders.FindBranchByCode(branchCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownBranch
		}
		return nil, err
	}
	return s.orders.ListByBranch(branch.ID, limit)
}

func (s *OrderService) payload(o *models.Order, actorRole string) hub.OrderPayload {
	return hub.OrderPayload{
		OrderID:     strconv.FormatUint(uint64(o.ID), 10),
		OrderNumber: o.Number,
		Status:      string(o.Status),
		Branch:      o.Branch.Code,
		ActorRole:   actorRole,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// newOrderNumber mints a short human-readable order number.
func newOrderNumber() string {
	now := time.Now()
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), now.UnixNano()%10000)
}
