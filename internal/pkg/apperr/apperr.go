// Package apperr defines the error kinds surfaced by the services.
//
// Callers wrap a kind with fmt.Errorf("%w: ...") and test it with errors.Is.
// A record that cannot be found is not an error: services return a nil
// result instead.
package apperr

import "errors"

var (
	// ErrInvalidFilter marks filter, pagination, search or id input that
	// cannot be turned into a predicate.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrValidation marks an insight payload that violates the record schema.
	ErrValidation = errors.New("validation failed")

	// ErrConstraintViolation marks a write rejected by a store constraint,
	// such as a duplicate key.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrStoreUnavailable marks any failure of the underlying storage call.
	ErrStoreUnavailable = errors.New("store unavailable")
)
