package errors

import (
	"errors"
	"fmt"
)

// Common error types for the VendorIQ client
var (
	// Transport failures
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrValidationRejected = errors.New("validation rejected")
	ErrServer             = errors.New("server error")
	ErrTimeout            = errors.New("request timed out")
	ErrNetworkUnreachable = errors.New("network unreachable")
	ErrUnexpectedResponse = errors.New("unexpected response")

	// Session errors
	ErrNoCredential   = errors.New("no credential")
	ErrStaleEpoch     = errors.New("credential changed during request")
	ErrAlreadyStarted = errors.New("session already started")

	// Store errors
	ErrStoreClosed = errors.New("store closed")
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

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
