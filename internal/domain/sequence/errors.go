package sequence

import "errors"

var (
	// ErrInvalidLab is returned for a non-positive lab identifier.
	ErrInvalidLab = errors.New("lab id must be positive")

	// ErrUnknownEntity is returned for an entity type with no registered
	// prefix.
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrConcurrencyConflict is returned when exclusive access to the
	// counter row could not be acquired within the lock timeout. Callers may
	// retry.
	ErrConcurrencyConflict = errors.New("counter row is locked by a concurrent caller")

	// ErrSequenceExhausted is returned when GenerateUniqueCode runs out of
	// retry budget while resolving collisions against an external uniqueness
	// constraint.
	ErrSequenceExhausted = errors.New("code generation retry budget exhausted")

	// ErrNotFound is returned when no counter row exists for the key.
	ErrNotFound = errors.New("sequence counter not found")
)
