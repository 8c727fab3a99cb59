package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/labms/labms/internal/domain/sequence"
	"github.com/labms/labms/internal/platform/db"
	"github.com/labms/labms/internal/platform/telemetry"
)

// TxRunner executes fn as one atomic unit: either every write inside fn
// becomes visible together, or none do. The production runner wraps fn in a
// database transaction; tests run fn directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service is the billing ledger and payment reconciliation engine. It owns
// the authoritative summary state and the append-only transaction ledger and
// keeps the two consistent under every mutation path. All mutations of one
// summary are serialized through the repository's row lock.
type Service struct {
	summaries SummaryRepository
	entries   TransactionRepository
	codes     *sequence.Service
	tx        TxRunner
	metrics   *telemetry.Provider
}

func NewService(summaries SummaryRepository, entries TransactionRepository, codes *sequence.Service, tx TxRunner) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		}
	}
	return &Service{summaries: summaries, entries: entries, codes: codes, tx: tx}
}

// SetMetrics attaches an optional telemetry provider to the service.
func (s *Service) SetMetrics(m *telemetry.Provider) {
	s.metrics = m
}

// CreateSummaryInput carries the caller-supplied fields for a new summary.
// Discount and GSTAmount are pass-through values; BillableTotal is the
// authoritative amount reconciliation runs against.
type CreateSummaryInput struct {
	BillableTotal float64 `json:"billable_total"`
	Discount      float64 `json:"discount"`
	GSTAmount     float64 `json:"gst_amount"`
	Actor         string  `json:"-"`
}

// CreateSummary creates the billing record for a new visit/order and mints
// its business code. The code is drawn before the transaction opens: a
// failed create leaves a gap in the sequence, never a reusable number.
func (s *Service) CreateSummary(ctx context.Context, in CreateSummaryInput) (*BillingSummary, error) {
	if in.BillableTotal < 0 || in.Discount < 0 || in.GSTAmount < 0 {
		return nil, fmt.Errorf("%w: totals must be non-negative", ErrInvalidAmount)
	}

	labID := db.LabFromContext(ctx)
	code, err := s.codes.GenerateUniqueCode(ctx, labID, sequence.EntityBilling, s.summaries.CodeExists)
	if err != nil {
		return nil, fmt.Errorf("mint billing code: %w", err)
	}

	summary := &BillingSummary{
		ID:            uuid.New(),
		Code:          code,
		BillableTotal: in.BillableTotal,
		Discount:      in.Discount,
		GSTAmount:     in.GSTAmount,
		UpdatedBy:     in.Actor,
	}
	summary.reconcile()

	err = s.tx(ctx, func(ctx context.Context) error {
		return s.summaries.Create(ctx, summary)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// AddPayment records one payment against the summary and appends the
// matching PAYMENT ledger entry, atomically. Repeating the call records two
// separate payments; callers needing idempotence must dedupe by an external
// request ID before calling.
func (s *Service) AddPayment(ctx context.Context, summaryID uuid.UUID, amount float64, method PaymentMethod, actor string) (*BillingSummary, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive, got %v", ErrInvalidAmount, amount)
	}
	if !method.ValidForPayment() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	var summary *BillingSummary
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.summaries.GetForUpdate(ctx, summaryID)
		if err != nil {
			return err
		}

		summary.ReceivedTotal += amount
		summary.reconcile()
		summary.UpdatedBy = actor

		if err := s.summaries.Update(ctx, summary); err != nil {
			return err
		}

		entry := &TransactionEntry{
			ID:                uuid.New(),
			SummaryID:         summary.ID,
			Kind:              KindPayment,
			Method:            method,
			ReceivedAmount:    amount,
			DueAmountSnapshot: summary.DueAmount,
			CreatedBy:         actor,
		}
		switch method {
		case MethodCash:
			entry.CashAmount = amount
		case MethodCard:
			entry.CardAmount = amount
		case MethodUPI:
			entry.UPIAmount = amount
		}

		return s.entries.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentRecorded(string(method))
	}
	return summary, nil
}

// RecalculateAfterAmountChange sets a new billable total and reconverges the
// summary from the current received total. When the payer turns out to have
// overpaid against the new, lower total, exactly one REFUND ledger entry is
// synthesized for the surplus; ReceivedTotal is never reduced. The operation
// is re-runnable: a second call with the same total finds a zero candidate
// due and synthesizes nothing.
func (s *Service) RecalculateAfterAmountChange(ctx context.Context, summaryID uuid.UUID, newBillableTotal float64, actor string) (*BillingSummary, *TransactionEntry, error) {
	if newBillableTotal < 0 {
		return nil, nil, fmt.Errorf("%w: billable total must be non-negative, got %v", ErrInvalidAmount, newBillableTotal)
	}

	var (
		summary *BillingSummary
		refund  *TransactionEntry
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.summaries.GetForUpdate(ctx, summaryID)
		if err != nil {
			return err
		}

		summary.BillableTotal = newBillableTotal
		candidate := summary.reconcile()
		summary.UpdatedBy = actor

		if err := s.summaries.Update(ctx, summary); err != nil {
			return err
		}

		if candidate < 0 {
			refund = &TransactionEntry{
				ID:                uuid.New(),
				SummaryID:         summary.ID,
				Kind:              KindRefund,
				Method:            MethodRefund,
				RefundAmount:      -candidate,
				DueAmountSnapshot: summary.DueAmount,
				Remarks:           fmt.Sprintf("refund due: billable total reduced to %.2f against %.2f received", newBillableTotal, summary.ReceivedTotal),
				CreatedBy:         actor,
			}
			return s.entries.Append(ctx, refund)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if refund != nil && s.metrics != nil {
		s.metrics.RefundSynthesized("amount_change")
	}
	return summary, refund, nil
}

// GetSummary returns the summary together with its full ledger. Read-only.
func (s *Service) GetSummary(ctx context.Context, summaryID uuid.UUID) (*BillingSummary, []*TransactionEntry, error) {
	summary, err := s.summaries.GetByID(ctx, summaryID)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := s.entries.AllBySummary(ctx, summaryID)
	if err != nil {
		return nil, nil, err
	}
	return summary, ledger, nil
}

// ListSummaries returns a page of summaries for the current lab.
func (s *Service) ListSummaries(ctx context.Context, limit, offset int) ([]*BillingSummary, int, error) {
	return s.summaries.List(ctx, limit, offset)
}

// ListTransactions returns a page of the summary's ledger, oldest first.
func (s *Service) ListTransactions(ctx context.Context, summaryID uuid.UUID, limit, offset int) ([]*TransactionEntry, int, error) {
	if _, err := s.summaries.GetByID(ctx, summaryID); err != nil {
		return nil, 0, err
	}
	return s.entries.ListBySummary(ctx, summaryID, limit, offset)
}

// IsRetryable reports whether the error is one a caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, sequence.ErrConcurrencyConflict) ||
		errors.Is(err, sequence.ErrSequenceExhausted)
}
