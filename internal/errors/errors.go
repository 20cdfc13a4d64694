package errors

import (
	"errors"
	"fmt"
)

// Common error types for the partner API client
var (
	// Credential store errors
	ErrCredentialNotFound = errors.New("no stored credential for account")
	ErrCredentialStore    = errors.New("credential store failure")

	// Session errors
	ErrNoActiveSession = errors.New("no active session for caller")
	ErrRenewalFailed   = errors.New("token renewal failed, re-authentication required")

	// Envelope errors
	ErrInvalidEnvelope    = errors.New("invalid envelope")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrUnsupportedVersion = errors.New("unsupported envelope version")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
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
