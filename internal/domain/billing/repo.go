package billing

import (
	"context"

	"github.com/google/uuid"
)

// SummaryRepository persists billing summaries. GetForUpdate must take an
// exclusive row lock and therefore only runs inside a transaction; the lock
// is what serializes all mutations of one summary.
type SummaryRepository interface {
	Create(ctx context.Context, s *BillingSummary) error
	GetByID(ctx context.Context, id uuid.UUID) (*BillingSummary, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*BillingSummary, error)
	Update(ctx context.Context, s *BillingSummary) error
	CodeExists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*BillingSummary, int, error)
}

// TransactionRepository persists ledger entries. The ledger is append-only:
// there is deliberately no update or delete.
type TransactionRepository interface {
	Append(ctx context.Context, e *TransactionEntry) error
	AllBySummary(ctx context.Context, summaryID uuid.UUID) ([]*TransactionEntry, error)
	ListBySummary(ctx context.Context, summaryID uuid.UUID, limit, offset int) ([]*TransactionEntry, int, error)
}
