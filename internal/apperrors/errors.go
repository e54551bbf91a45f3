package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Login policy failures
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserLockedOut        = errors.New("user account is locked out")
	ErrEmailNotConfirmed    = errors.New("user email is not confirmed")
	ErrAlreadyAuthenticated = errors.New("user is already authenticated")

	ErrRefreshTokenNotFound         = errors.New("refresh token not found")
	ErrRefreshTokenInvalidOrExpired = errors.New("refresh token is not active or has expired")

	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategoryNameTaken = errors.New("category name already exists")
	ErrProductNotFound   = errors.New("product not found")
)

// ValidationError is a caller fault: missing or malformed input.
// Field carries the offending field name so the boundary can render it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
