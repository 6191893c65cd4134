package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Credential errors
	ErrMalformedToken  = errors.New("malformed token")
	ErrRefreshRejected = errors.New("refresh token rejected")
	ErrNoSession       = errors.New("no active session")

	// Identity errors
	ErrIdentityUnavailable = errors.New("identity unavailable")
	ErrMissingIdentityID   = errors.New("identity response missing numeric id")

	// Backend errors
	ErrMalformedPayload = errors.New("malformed response payload")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
