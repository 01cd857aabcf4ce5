// Package types defines the request, response, and domain types shared
// across the HTTP layer, persistence, and the model-facing services.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate is shared; validator.Validate caches struct metadata internally.
var validate = validator.New()

// CreateUserRequest registers a new account with password authentication.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User is the API-facing user profile. The password hash never leaves the
// db package.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginResponse carries the authenticated user and a signed session token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Validate checks the request against its field constraints.
func (r *CreateUserRequest) Validate() error {
	return validate.Struct(r)
}

// Validate checks the request against its field constraints.
func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}
