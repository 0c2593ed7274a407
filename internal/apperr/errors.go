// Package apperr defines the error taxonomy shared by the store, the service
// and the HTTP layer. Callers branch with errors.Is against the sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a lookup or mutation that targeted an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected before it reached the store.
	ErrValidation = errors.New("validation failed")
	// ErrStorage marks an I/O or constraint failure inside the store.
	ErrStorage = errors.New("storage failure")
	// ErrResolution marks an image reference that could not be fetched.
	ErrResolution = errors.New("image resolution failed")
)

// Validation wraps err so that it matches ErrValidation.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Storage wraps err so that it matches ErrStorage, prefixed with op.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
