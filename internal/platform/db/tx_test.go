package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTxFromContext_Nil(t *testing.T) {
	tx := TxFromContext(context.Background())
	if tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	tx := TxFromContext(ctx)
	if tx != nil {
		t.Error("expected nil tx for wrong value type")
	}
}

func TestIsLockConflict(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"55P03", true}, // lock_not_available
		{"40001", true}, // serialization_failure
		{"40P01", true}, // deadlock_detected
		{"23505", false},
		{"42P01", false},
	}
	for _, tc := range cases {
		err := &pgconn.PgError{Code: tc.code}
		if got := IsLockConflict(err); got != tc.want {
			t.Errorf("IsLockConflict(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}

	if IsLockConflict(nil) {
		t.Error("IsLockConflict(nil) should be false")
	}
	if IsLockConflict(context.Canceled) {
		t.Error("IsLockConflict should be false for non-pg errors")
	}
}
