package sequence

import (
	"context"
	"errors"
	"fmt"

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

type counterRepoPG struct{ pool *pgxpool.Pool }

func NewCounterRepoPG(pool *pgxpool.Pool) CounterRepository {
	return &counterRepoPG{pool: pool}
}

func (r *counterRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// NextNumber relies on the upsert taking a row lock: concurrent callers on
// the same key queue behind it, so no two of them ever observe the same
// value. A lock wait that exceeds lock_timeout surfaces as
// ErrConcurrencyConflict.
func (r *counterRepoPG) NextNumber(ctx context.Context, labID int64, entityName string) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO sequence_counters (lab_id, entity_name, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (lab_id, entity_name)
		DO UPDATE SET last_number = sequence_counters.last_number + 1, updated_at = NOW()
		RETURNING last_number`,
		labID, entityName).Scan(&n)
	if err != nil {
		if db.IsLockConflict(err) {
			return 0, ErrConcurrencyConflict
		}
		return 0, fmt.Errorf("increment counter (%d, %s): %w", labID, entityName, err)
	}
	return n, nil
}

func (r *counterRepoPG) EnsureMinimum(ctx context.Context, labID int64, entityName string, min int64) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO sequence_counters (lab_id, entity_name, last_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (lab_id, entity_name)
		DO UPDATE SET last_number = GREATEST(sequence_counters.last_number, EXCLUDED.last_number),
		              updated_at = NOW()`,
		labID, entityName, min)
	if err != nil {
		if db.IsLockConflict(err) {
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("ensure counter minimum (%d, %s): %w", labID, entityName, err)
	}
	return nil
}

func (r *counterRepoPG) Get(ctx context.Context, labID int64, entityName string) (*Counter, error) {
	var c Counter
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT lab_id, entity_name, last_number, updated_at
		FROM sequence_counters
		WHERE lab_id = $1 AND entity_name = $2`,
		labID, entityName).Scan(&c.LabID, &c.EntityName, &c.LastNumber, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get counter (%d, %s): %w", labID, entityName, err)
	}
	return &c, nil
}
