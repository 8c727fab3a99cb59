package billing

import "errors"

var (
	// ErrNotFound is returned when the billing summary does not exist.
	ErrNotFound = errors.New("billing summary not found")

	// ErrInvalidAmount is returned for non-positive payment amounts and
	// negative totals.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidMethod is returned when a payment names a method the engine
	// does not accept.
	ErrInvalidMethod = errors.New("invalid payment method")

	// ErrConcurrencyConflict is returned when the summary row could not be
	// locked within the lock timeout. Callers may retry.
	ErrConcurrencyConflict = errors.New("billing summary is locked by a concurrent caller")
)
