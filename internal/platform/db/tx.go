package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DBTxKey contextKey = "db_tx"

// defaultLockTimeout bounds how long a statement waits on a row lock before
// the database gives up with SQLSTATE 55P03. Overridden at boot from config.
var defaultLockTimeout = 5 * time.Second

// SetLockTimeout configures the lock wait bound. It is applied per session at
// connect time (see poolConfig) and re-asserted per transaction by WithTx, so
// it must be called before NewPool.
func SetLockTimeout(d time.Duration) {
	if d > 0 {
		defaultLockTimeout = d
	}
}

// TxFromContext retrieves the active transaction from context, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx runs fn inside a single database transaction and stashes the
// transaction on the context so repositories pick it up via TxFromContext.
// The transaction begins on the lab-scoped connection when one is present
// (preserving the request's search_path), otherwise on the pool. Nested
// calls reuse the outer transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	var beginner txBeginner = pool
	if conn := ConnFromContext(ctx); conn != nil {
		beginner = conn
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", defaultLockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsLockConflict reports whether err is a lock wait timeout, a deadlock, or a
// serialization failure — the cases a caller may retry.
func IsLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
		return true
	}
	return false
}
