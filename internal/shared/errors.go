package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a duplicate or otherwise conflicting change.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates an operation refused by policy.
	ErrForbidden = errors.New("forbidden")
	// ErrLockNotAcquired occurs when a lock is held by someone else.
	ErrLockNotAcquired = errors.New("lock not acquired")
)
