package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemRoleAdmin marks console operators allowed to review orders.
const SystemRoleAdmin = "admin"

// User represents an admin console identity.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	SystemRole   *string    `gorm:"column:system_role"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAdmin reports whether the user carries the admin system role.
func (u *User) IsAdmin() bool {
	return u != nil && u.SystemRole != nil && *u.SystemRole == SystemRoleAdmin
}
