package main

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrEmailTaken      = fmt.Errorf("email %w", ErrConflict)
)

// ValidationError reports missing or malformed input. Field is the
// offending request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Field + " is required"
}

func missingField(field string) error {
	return &ValidationError{Field: field}
}
