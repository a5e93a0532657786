package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	// ErrAccountNotFound matches ErrUnauthenticated so callers cannot tell a
	// bad token from a missing or disabled account.
	ErrAccountNotFound         = fmt.Errorf("%w: account not found", ErrUnauthenticated)
	ErrForbidden               = errors.New("forbidden")
	ErrNotFound                = errors.New("not found")
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrExternalServiceDegraded = errors.New("external model unavailable")
	ErrLocalClassifier         = errors.New("local classifier failed")
	ErrRateLimited             = errors.New("too many concurrent external requests")
	ErrSearchDisabled          = errors.New("history search is not enabled")
)

// ConflictError names the unique field a registration collided on.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return e.Field + " already exists" }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
