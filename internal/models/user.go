package models

import (
	"time"
)

type UserRole string

const (
	RoleProfessor UserRole = "PROFESSOR"
	RoleAdmin     UserRole = "ADMIN"
)

// Valid reports whether the role is one of the defined variants.
func (r UserRole) Valid() bool {
	return r == RoleProfessor || r == RoleAdmin
}

type User struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	Name     string   `json:"nome" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password string   `json:"-" gorm:"not null;size:100"`
	Role     UserRole `json:"role" gorm:"not null;size:20;default:PROFESSOR"`

	// Profile info
	Photo *string `json:"foto" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
