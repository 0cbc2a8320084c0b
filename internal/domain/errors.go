package domain

import "errors"

// Sentinel errors shared across services. Callers classify failures with
// errors.Is; services wrap these with context via fmt.Errorf and %w.
var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrDuplicateVote      = errors.New("duplicate vote")
	ErrValidation         = errors.New("validation failed")
	ErrDependency         = errors.New("dependency unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
