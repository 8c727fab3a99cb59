package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labms/labms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type summaryRepoPG struct{ pool *pgxpool.Pool }

func NewSummaryRepoPG(pool *pgxpool.Pool) SummaryRepository {
	return &summaryRepoPG{pool: pool}
}

func (r *summaryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const summaryColumns = `id, code, billable_total, discount, gst_amount,
	received_total, due_amount, payment_status, updated_by, created_at, updated_at`

func scanSummary(row pgx.Row) (*BillingSummary, error) {
	var s BillingSummary
	err := row.Scan(&s.ID, &s.Code, &s.BillableTotal, &s.Discount, &s.GSTAmount,
		&s.ReceivedTotal, &s.DueAmount, &s.PaymentStatus, &s.UpdatedBy,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *summaryRepoPG) Create(ctx context.Context, s *BillingSummary) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO billing_summaries
			(id, code, billable_total, discount, gst_amount,
			 received_total, due_amount, payment_status, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		s.ID, s.Code, s.BillableTotal, s.Discount, s.GSTAmount,
		s.ReceivedTotal, s.DueAmount, s.PaymentStatus, s.UpdatedBy).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create billing summary %s: %w", s.Code, err)
	}
	return nil
}

func (r *summaryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BillingSummary, error) {
	s, err := scanSummary(r.conn(ctx).QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM billing_summaries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get billing summary %s: %w", id, err)
	}
	return s, nil
}

// GetForUpdate takes the summary's row lock. Concurrent mutators for the
// same summary queue here; a wait past lock_timeout comes back as
// ErrConcurrencyConflict.
func (r *summaryRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*BillingSummary, error) {
	s, err := scanSummary(r.conn(ctx).QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM billing_summaries WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if db.IsLockConflict(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("lock billing summary %s: %w", id, err)
	}
	return s, nil
}

func (r *summaryRepoPG) Update(ctx context.Context, s *BillingSummary) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE billing_summaries
		SET billable_total = $2, discount = $3, gst_amount = $4,
		    received_total = $5, due_amount = $6, payment_status = $7,
		    updated_by = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.BillableTotal, s.Discount, s.GSTAmount,
		s.ReceivedTotal, s.DueAmount, s.PaymentStatus, s.UpdatedBy).
		Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update billing summary %s: %w", s.ID, err)
	}
	return nil
}

func (r *summaryRepoPG) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM billing_summaries WHERE code = $1)`, code).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe billing code %s: %w", code, err)
	}
	return exists, nil
}

func (r *summaryRepoPG) List(ctx context.Context, limit, offset int) ([]*BillingSummary, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM billing_summaries`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count billing summaries: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+summaryColumns+`
		FROM billing_summaries
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list billing summaries: %w", err)
	}
	defer rows.Close()

	var out []*BillingSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan billing summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type transactionRepoPG struct{ pool *pgxpool.Pool }

func NewTransactionRepoPG(pool *pgxpool.Pool) TransactionRepository {
	return &transactionRepoPG{pool: pool}
}

func (r *transactionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryColumns = `id, summary_id, kind, method, cash_amount, card_amount,
	upi_amount, received_amount, refund_amount, due_snapshot, remarks,
	created_by, created_at`

func scanEntry(row pgx.Row) (*TransactionEntry, error) {
	var e TransactionEntry
	err := row.Scan(&e.ID, &e.SummaryID, &e.Kind, &e.Method, &e.CashAmount,
		&e.CardAmount, &e.UPIAmount, &e.ReceivedAmount, &e.RefundAmount,
		&e.DueAmountSnapshot, &e.Remarks, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *transactionRepoPG) Append(ctx context.Context, e *TransactionEntry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO billing_transactions
			(id, summary_id, kind, method, cash_amount, card_amount,
			 upi_amount, received_amount, refund_amount, due_snapshot,
			 remarks, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		e.ID, e.SummaryID, e.Kind, e.Method, e.CashAmount, e.CardAmount,
		e.UPIAmount, e.ReceivedAmount, e.RefundAmount, e.DueAmountSnapshot,
		e.Remarks, e.CreatedBy).
		Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append billing transaction for %s: %w", e.SummaryID, err)
	}
	return nil
}

func (r *transactionRepoPG) AllBySummary(ctx context.Context, summaryID uuid.UUID) ([]*TransactionEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryColumns+`
		FROM billing_transactions
		WHERE summary_id = $1
		ORDER BY created_at ASC`, summaryID)
	if err != nil {
		return nil, fmt.Errorf("load ledger for %s: %w", summaryID, err)
	}
	defer rows.Close()

	var out []*TransactionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan billing transaction: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *transactionRepoPG) ListBySummary(ctx context.Context, summaryID uuid.UUID, limit, offset int) ([]*TransactionEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM billing_transactions WHERE summary_id = $1`,
		summaryID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count billing transactions: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryColumns+`
		FROM billing_transactions
		WHERE summary_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, summaryID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list billing transactions: %w", err)
	}
	defer rows.Close()

	var out []*TransactionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan billing transaction: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
