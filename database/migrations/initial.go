package migrations

import (
	"gorm.io/gorm"

	"github.com/sofrapos/sofra/app/models"
	"github.com/sofrapos/sofra/pkg/migration"
)

func init() {
	migration.Register("20260101000000_create_branches_table", &CreateBranchesTable{})
	migration.Register("20260101000001_create_users_table", &CreateUsersTable{})
	migration.Register("20260101000002_create_orders_table", &CreateOrdersTable{})
}

// -------- 0001: branches --------

type CreateBranchesTable struct{}

func (m *CreateBranchesTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Branch{})
}

func (m *CreateBranchesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("branches")
}

// -------- 0002: users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

// -------- 0003: orders --------

type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("orders")
}
