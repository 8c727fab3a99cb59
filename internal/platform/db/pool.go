package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// poolConfig builds the pool configuration. Every session carries a
// lock_timeout so statements running outside WithTx (the sequence counter
// upserts, which execute in autocommit on the lab-scoped connection) wait a
// bounded time for row locks and then fail with SQLSTATE 55P03 instead of
// blocking indefinitely.
func poolConfig(databaseURL string, maxConns, minConns int32) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.ConnConfig.RuntimeParams["lock_timeout"] = fmt.Sprintf("%dms", defaultLockTimeout.Milliseconds())

	return cfg, nil
}

// NewPool connects to the database. Call SetLockTimeout first; the configured
// bound is baked into each session at connect time.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(databaseURL, maxConns, minConns)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
