package usecase

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPrecondition marks operations rejected before any mutation, such
	// as scoring before both lineups are locked. Not retriable without
	// changing the precondition.
	ErrPrecondition = errors.New("precondition failed")
	// ErrConflict marks writes rejected by the store's integrity
	// constraints, such as a transition attempted from an incompatible
	// record state. Treated as a caller bug, never retried automatically.
	ErrConflict = errors.New("conflicting state")
	// ErrDependencyUnavailable marks failures of an external collaborator
	// (league backend, webhook target) rather than of this engine.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
