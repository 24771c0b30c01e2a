package seeders

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sofrapos/sofra/app/models"
)

func init() {
	Register("branches", SeedBranches)
	Register("users", SeedUsers)
}

// SeedBranches inserts the two demo locations.
func SeedBranches(db *gorm.DB) error {
	branches := []models.Branch{
		{Code: "downtown", Name: "Downtown", Address: "12 Main St", Phone: "+1-555-0100"},
		{Code: "riverside", Name: "Riverside", Address: "4 Quay Rd", Phone: "+1-555-0101"},
	}
	for i := range branches {
		if err := db.Where("code = ?", branches[i].Code).
			FirstOrCreate(&branches[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedUsers inserts one account per role. The admin has no branch; everyone
// else belongs to downtown.
func SeedUsers(db *gorm.DB) error {
	var downtown models.Branch
	if err := db.Where("code = ?", "downtown").First(&downtown).Error; err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []models.User{
		{Name: "Admin", Email: "admin@sofra.local", Role: "ADMIN"},
		{Name: "Maya Manager", Email: "manager@sofra.local", Role: "MANAGER", BranchID: &downtown.ID},
		{Name: "Sam Staff", Email: "staff@sofra.local", Role: "STAFF", BranchID: &downtown.ID},
		{Name: "Kim Kitchen", Email: "kitchen@sofra.local", Role: "KITCHEN_STAFF", BranchID: &downtown.ID},
	}
	for i := range users {
		users[i].Password = string(hash)
		if err := db.Where("email = ?", users[i].Email).
			FirstOrCreate(&users[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
