// Package apperrors holds the error taxonomy shared by the stores, the
// services and the HTTP layer.
package apperrors

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidOperation is returned for requests rejected before any store access,
	// e.g. a user trying to follow themselves.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrNotFound is reserved for operations that require existence.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation signals a uniqueness guard firing where an upsert was expected.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrStoreUnavailable means a backing store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidCursor    = errors.New("invalid cursor")
	ErrInvalidEvent     = errors.New("invalid event")
)

// StoreError wraps a failure returned by a backing store. It matches
// ErrStoreUnavailable under errors.Is while keeping the driver error reachable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Store wraps err as a StoreError for the given operation. A nil err stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Invalid annotates ErrInvalidOperation with a reason.
func Invalid(reason string) error {
	return errors.Wrap(ErrInvalidOperation, reason)
}
