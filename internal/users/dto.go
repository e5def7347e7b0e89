package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/db/models"
)

// Profile is the console view of an admin. It never carries the password hash.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `json:"is_active"`
	SystemRole  *string    `json:"system_role,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		SystemRole:  u.SystemRole,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// NewUser is what Create needs. Accounts start active; set Inactive to create
// one that cannot sign in yet.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	SystemRole   *string
	Inactive     bool
}

func (n NewUser) model() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        n.Email,
		PasswordHash: n.PasswordHash,
		FirstName:    n.FirstName,
		LastName:     n.LastName,
		IsActive:     !n.Inactive,
		SystemRole:   n.SystemRole,
	}
}
