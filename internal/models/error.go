package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("forbidden")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("missing or invalid session token")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccountLocked      = errors.New("account is temporarily locked")

	// Password lifecycle errors
	ErrWeakPassword      = errors.New("password does not meet minimum length")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// AccountLockedError carries the remaining lockout duration. It unwraps to
// ErrAccountLocked so callers keep matching with errors.Is.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %d minute(s)", e.RemainingMinutes())
}

func (e *AccountLockedError) Unwrap() error { return ErrAccountLocked }

// RemainingMinutes rounds the remaining lockout up to whole minutes.
func (e *AccountLockedError) RemainingMinutes() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Minute - 1) / time.Minute)
}

// CredentialsError reports how many attempts remain before lockout after a
// password mismatch. AttemptsRemaining < 0 means the detail is unknown
// (the email matched no account); callers must then use the generic message
// so unknown-email stays indistinguishable from wrong-password.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string {
	if e.AttemptsRemaining < 0 {
		return ErrInvalidCredentials.Error()
	}
	return fmt.Sprintf("invalid credentials, %d attempt(s) remaining", e.AttemptsRemaining)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }
