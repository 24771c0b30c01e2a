package models

import "gorm.io/gorm"

// Branch is one physical restaurant location. Its Code is the canonical
// branch identifier used everywhere — JWT claims, room joins, event
// payloads. Display names are never used for matching.
type Branch struct {
	gorm.Model
	Code    string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name    string `gorm:"size:100;not null"            json:"name"`
	Address string `gorm:"size:255"                     json:"address"`
	Phone   string `gorm:"size:50"                      json:"phone"`

	Users []User `json:"-"`
}

// User is a back-office or terminal account.
type User struct {
	gorm.Model
	Name     string `gorm:"size:255;not null"            json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null"            json:"-"` // bcrypt hash, never serialised
	Role     string `gorm:"size:50;not null;default:CUSTOMER" json:"role"`

	BranchID *uint   `gorm:"index" json:"-"`
	Branch   *Branch `json:"branch,omitempty"`

	// Permissions is an optional comma-separated override of the role
	// defaults, stored as RESOURCE_ACTION tokens.
	Permissions string `gorm:"type:text" json:"-"`
}

// BranchCode returns the canonical branch identifier, or "" when the user
// (an admin, typically) has no branch affiliation.
func (u *User) BranchCode() string {
	if u.Branch == nil {
		return ""
	}
	return u.Branch.Code
}
