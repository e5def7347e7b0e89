package auth

import (
	"time"

	"github.com/finishpro/admin-backend/internal/users"
)

// LoginRequest captures the credentials sent to the admin login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the presented access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is the access/refresh pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResponse contains the issued tokens and the signed-in admin.
type LoginResponse struct {
	TokenPair
	User *users.Profile `json:"user"`
}
