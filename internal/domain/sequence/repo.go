package sequence

import "context"

// CounterRepository persists per-(lab, entity) sequence counters. All three
// operations must be atomic with respect to concurrent callers on the same
// key; implementations serialize via row-level locking.
type CounterRepository interface {
	// NextNumber increments the counter for (labID, entityName) by exactly
	// one and returns the new value, creating the row at 1 on first use.
	NextNumber(ctx context.Context, labID int64, entityName string) (int64, error)

	// EnsureMinimum raises the counter to min if it is currently lower. It
	// never lowers the counter.
	EnsureMinimum(ctx context.Context, labID int64, entityName string, min int64) error

	// Get returns the counter row, or ErrNotFound.
	Get(ctx context.Context, labID int64, entityName string) (*Counter, error)
}
