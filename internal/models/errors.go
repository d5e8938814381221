package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a strategy draft or settings payload rejected locally
	ErrValidation = errors.New("validation failed")

	// ErrPreconditionFailed marks a lifecycle call refused because of the strategy's state
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidOrderSpec marks an order spec rejected locally
	ErrInvalidOrderSpec = errors.New("invalid order spec")
)

// ValidationError describes the first invalid field of a payload
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// OrderSpecError describes why an order spec cannot be submitted
type OrderSpecError struct {
	Field   string
	Message string
}

func (e *OrderSpecError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidOrderSpec, e.Field, e.Message)
}

func (e *OrderSpecError) Unwrap() error {
	return ErrInvalidOrderSpec
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidOrder(field, format string, args ...interface{}) error {
	return &OrderSpecError{Field: field, Message: fmt.Sprintf(format, args...)}
}
