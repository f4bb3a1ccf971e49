package domain

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// User is a salon account. Rows are soft deleted.
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string         `gorm:"size:200" json:"name"`
	Email        string         `gorm:"size:200;uniqueIndex;not null" json:"email"`
	Phone        string         `gorm:"size:50" json:"phone"`
	PasswordHash string         `gorm:"size:100" json:"-"`
	Role         string         `gorm:"size:20;index;default:'client'" json:"role"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one a user may hold.
func ValidRole(role string) bool {
	return role == RoleClient || role == RoleAdmin
}
