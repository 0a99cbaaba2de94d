// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import "errors"

// The three error kinds the HTTP layer and the requestor boundaries
// distinguish. Everything else is treated as an internal error.
var (
	// ErrNotFound reports that a requested identifier has no matching record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput reports a request that failed local shape validation
	// before any external call was made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExternal reports a failure from an outbound collaborator.
	ErrExternal = errors.New("external call failed")
)

// IsNotFound checks whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks whether err is, or wraps, ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsExternal checks whether err is, or wraps, ErrExternal.
func IsExternal(err error) bool {
	return errors.Is(err, ErrExternal)
}
