package auth

import (
	"github.com/angelmondragon/storefront-backend/internal/users"
)

// RegisterRequest captures the signup form.
type RegisterRequest struct {
	Name            string  `json:"name" validate:"required,min=2"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=6"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password"`
	Phone           *string `json:"phone,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RefreshRequest carries the refresh token paired with the caller's access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse contains the tokens and user produced by register, login and refresh.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
