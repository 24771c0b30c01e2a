package repositories

import (
	"gorm.io/gorm"

	"github.com/sofrapos/sofra/app/models"
)

// OrderRepository handles database operations for Order.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order.
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// FindByID looks up an order with its branch preloaded.
func (r *OrderRepository) FindByID(id uint) (models.Order, error) {
	var order models.Order
	err := r.db.Preload("Branch").First(&order, id).Error
	return order, err
}

// Update persists changes to an existing order.
func (r *OrderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// ListByBranch returns the most recent orders for one branch.
func (r *OrderRepository) ListByBranch(branchID uint, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Branch").
		Where("branch_id = ?", branchID).
		Order("created_at desc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// List returns the most recent orders across all branches.
func (r *OrderRepository) List(limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Branch").
		Order("created_at desc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// FindBranchByCode resolves a canonical branch code.
func (r *OrderRepository) FindBranchByCode(code string) (models.Branch, error) {
	var branch models.Branch
	err := r.db.Where("code = ?", code).First(&branch).Error
	return branch, err
}
