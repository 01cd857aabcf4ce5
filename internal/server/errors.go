// Package server provides the HTTP REST API for the resume manager.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/resume-manager/internal/chat"
	"github.com/jonathan/resume-manager/internal/db"
	"github.com/jonathan/resume-manager/internal/docparse"
	"github.com/jonathan/resume-manager/internal/extraction"
	"github.com/jonathan/resume-manager/internal/schemas"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus maps service and downstream errors to response status codes.
// Errors are matched through their wrap chain.
func HTTPStatus(err error) int {
	var (
		emailExists        *ErrEmailAlreadyExists
		invalidCredentials *ErrInvalidCredentials
		userNotFound       *ErrUserNotFound
		validation         *ErrValidation
		invalidResultType  *docparse.ErrInvalidResultType
		unsupportedType    *extraction.UnsupportedTypeError
		providerErr        *docparse.ProviderError
		timeoutErr         *docparse.TimeoutError
		schemaErr          *schemas.ValidationError
		sessionExpired     *chat.SessionExpiredError
	)

	switch {
	case errors.As(err, &emailExists):
		return http.StatusConflict
	case errors.As(err, &invalidCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &userNotFound), errors.Is(err, db.ErrResumeNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &invalidResultType), errors.As(err, &unsupportedType):
		return http.StatusBadRequest
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &sessionExpired):
		return http.StatusGone
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
