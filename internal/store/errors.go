package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConcurrentUpdate is returned by SaveProgress when the stored
	// progress changed since it was read. Callers re-read and retry.
	ErrConcurrentUpdate = errors.New("concurrent update")

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. The operation may be retried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrSubjectNotFound indicates that the requested subject does not exist.
	ErrSubjectNotFound = fmt.Errorf("%w: subject", ErrNotFound)

	// ErrProgressNotFound indicates that the learner has no progress record.
	ErrProgressNotFound = fmt.Errorf("%w: progress", ErrNotFound)

	// ErrCardNotFound indicates that the learner has no card for the
	// requested subject and aspect.
	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether an operation that failed with err may
// succeed when repeated against fresh state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrStoreUnavailable)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "subject", "progress")
	Operation string // The operation that failed (e.g., "get", "save")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
