package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidInput is returned for malformed caller input such as an
	// unknown aspect, an unknown outcome, a non-positive subject ID or an
	// empty answer. It wraps ErrValidation.
	ErrInvalidInput = fmt.Errorf("%w: invalid input", ErrValidation)

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = fmt.Errorf("%w: invalid ID", ErrValidation)

	// ErrInvalidSubjectType is returned when a subject type is outside the
	// closed set of curriculum types.
	ErrInvalidSubjectType = fmt.Errorf("%w: invalid subject type", ErrValidation)

	// ErrInvalidAspect is returned when an aspect is neither meaning nor reading.
	ErrInvalidAspect = fmt.Errorf("%w: invalid aspect", ErrInvalidInput)

	// ErrInvalidOutcome is returned when a review outcome is neither good nor bad.
	ErrInvalidOutcome = fmt.Errorf("%w: invalid review outcome", ErrInvalidInput)

	// ErrAspectNotApplicable is returned when a reading card is requested for
	// a subject type that has no reading aspect.
	ErrAspectNotApplicable = fmt.Errorf("%w: aspect not applicable to subject type", ErrValidation)

	// ErrInvalidCardState is returned when a card's state is not one of the
	// four scheduler states.
	ErrInvalidCardState = fmt.Errorf("%w: invalid card state", ErrValidation)

	// ErrInvalidSchedulerParams is returned when a scheduler parameter set
	// is incomplete or out of range.
	ErrInvalidSchedulerParams = fmt.Errorf("%w: invalid scheduler parameters", ErrValidation)

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes a validation failure on a single field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
