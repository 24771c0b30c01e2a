package models

import "gorm.io/gorm"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "PLACED"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Order is a POS order scoped to one branch.
type Order struct {
	gorm.Model
	Number   string      `gorm:"size:50;uniqueIndex;not null" json:"orderNumber"`
	Status   OrderStatus `gorm:"size:50;not null;default:PLACED" json:"status"`
	Total    float64     `json:"total"`
	BranchID uint        `gorm:"not null;index" json:"-"`
	Branch   Branch      `json:"branch"`

	CreatedByID uint  `gorm:"index" json:"-"`
	CreatedBy   *User `json:"createdBy,omitempty"`
}
