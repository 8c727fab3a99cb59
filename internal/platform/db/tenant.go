package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	LabIDKey  contextKey = "lab_id"
	DBConnKey contextKey = "db_conn"
)

// Lab identifiers are numeric; they are embedded verbatim in schema names and
// business codes, so anything else is rejected up front.
var labIDPattern = regexp.MustCompile(`^[0-9]+$`)

// LabMiddleware resolves the calling lab, pins a pooled connection to the
// lab's schema and stashes both on the request context. Every repository in
// the request then reads and writes inside lab_<id>.
func LabMiddleware(pool *pgxpool.Pool, defaultLab string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			labID := extractLabID(c, defaultLab)

			if !labIDPattern.MatchString(labID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid lab identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			schema := fmt.Sprintf("lab_%s", labID)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "lab resolution failed")
			}

			id, _ := strconv.ParseInt(labID, 10, 64)
			ctx = context.WithValue(ctx, LabIDKey, id)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("lab_id", labID)
			c.Set("db", conn)

			return next(c)
		}
	}
}

func extractLabID(c echo.Context, defaultLab string) string {
	// 1. Check JWT claim (set by auth middleware)
	if lid, ok := c.Get("jwt_lab_id").(string); ok && lid != "" {
		return lid
	}

	// 2. Check X-Lab-ID header
	if lid := c.Request().Header.Get("X-Lab-ID"); lid != "" {
		return lid
	}

	// 3. Check query parameter
	if lid := c.QueryParam("lab_id"); lid != "" {
		return lid
	}

	return defaultLab
}

// ConnFromContext retrieves the lab-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// LabFromContext retrieves the lab ID from context. Returns 0 when the
// context carries no lab (CLI paths).
func LabFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(LabIDKey).(int64)
	return id
}

// WithLab returns a context carrying the given lab ID. Used by CLI commands
// and tests that bypass the HTTP middleware.
func WithLab(ctx context.Context, labID int64) context.Context {
	return context.WithValue(ctx, LabIDKey, labID)
}

// CreateLabSchema creates a new schema for a lab and runs all migrations
// against it. If migrationsDir is empty, migrations are skipped.
func CreateLabSchema(ctx context.Context, pool *pgxpool.Pool, labID string, migrationsDir string) error {
	if !labIDPattern.MatchString(labID) {
		return fmt.Errorf("invalid lab identifier: %s", labID)
	}

	schema := fmt.Sprintf("lab_%s", labID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
