package services

import (
	"errors"
	"fmt"
	"strings"

	"research-repository-api/models"
)

var (
	ErrUnauthenticated    = errors.New("not authorized, token missing or invalid")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("paper not found")
	ErrFileMissing        = errors.New("file not found on server")
	ErrInvalidStatus      = errors.New("invalid status value, expected approved or rejected")
	ErrConflict           = errors.New("paper has already been reviewed")
	ErrEmailTaken         = errors.New("email is already registered")
)

// ForbiddenError is returned when a verified user's role is outside the
// allowed set for an action.
type ForbiddenError struct {
	Role models.Role
}

func (e *ForbiddenError) Error() string {
	role := string(e.Role)
	if role == "" {
		role = "unknown"
	}
	return fmt.Sprintf("User role %s is not authorized to perform this action", role)
}

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated field of a submission or
// registration, not only the first one found.
type ValidationError struct {
	Op     string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Op, strings.Join(parts, ", "))
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Authorize allows the action only when user's role is in allowed.
func Authorize(user *models.User, allowed ...models.Role) error {
	if user == nil {
		return ErrUnauthenticated
	}
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	return &ForbiddenError{Role: user.Role}
}
