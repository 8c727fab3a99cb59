package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/labms/labms/internal/platform/telemetry"
)

// maxUniqueAttempts caps the GenerateUniqueCode retry loop.
const maxUniqueAttempts = 1000

// ExistsFunc reports whether a candidate code already exists under some
// external uniqueness constraint (e.g. a unique index over imported legacy
// rows).
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Service mints unique, human-readable business codes. Each call durably
// advances the counter on its own — callers must invoke it outside their own
// transactions so an abandoned code leaves a gap rather than being reissued.
type Service struct {
	counters CounterRepository
	metrics  *telemetry.Provider
}

func NewService(counters CounterRepository) *Service {
	return &Service{counters: counters}
}

// SetMetrics attaches an optional telemetry provider to the service.
func (s *Service) SetMetrics(m *telemetry.Provider) {
	s.metrics = m
}

// GenerateCode draws the next number for (labID, entityType) and formats it
// as <prefix><labID>-<number padded to 5 digits>. Two concurrent calls for
// the same key never return the same number; contention past the lock
// timeout surfaces ErrConcurrencyConflict.
func (s *Service) GenerateCode(ctx context.Context, labID int64, entityType EntityType) (string, error) {
	if labID <= 0 {
		return "", ErrInvalidLab
	}
	if !entityType.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, entityType)
	}

	n, err := s.counters.NextNumber(ctx, labID, entityType.EntityName())
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) && s.metrics != nil {
			s.metrics.SequenceConflict(entityType.EntityName())
		}
		return "", err
	}

	return FormatCode(entityType.Prefix(), labID, n), nil
}

// EnsureMinimum raises the counter for (labID, entityType) to min if it is
// currently lower. Used to re-synchronize after detecting a collision with
// out-of-band codes (legacy imports). It never lowers the counter.
func (s *Service) EnsureMinimum(ctx context.Context, labID int64, entityType EntityType, min int64) error {
	if labID <= 0 {
		return ErrInvalidLab
	}
	if !entityType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entityType)
	}
	return s.counters.EnsureMinimum(ctx, labID, entityType.EntityName(), min)
}

// GenerateUniqueCode draws codes until exists reports no collision,
// re-synchronizing the counter after each hit so it catches up with
// manually-seeded data. Exhausting the budget returns ErrSequenceExhausted.
func (s *Service) GenerateUniqueCode(ctx context.Context, labID int64, entityType EntityType, exists ExistsFunc) (string, error) {
	if labID <= 0 {
		return "", ErrInvalidLab
	}
	if !entityType.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, entityType)
	}

	for attempt := 0; attempt < maxUniqueAttempts; attempt++ {
		n, err := s.counters.NextNumber(ctx, labID, entityType.EntityName())
		if err != nil {
			if errors.Is(err, ErrConcurrencyConflict) && s.metrics != nil {
				s.metrics.SequenceConflict(entityType.EntityName())
			}
			return "", err
		}
		code := FormatCode(entityType.Prefix(), labID, n)

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("uniqueness check for %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}

		// The counter is behind data created outside this generator. Make
		// sure it is at least at the collided number before re-drawing.
		if err := s.counters.EnsureMinimum(ctx, labID, entityType.EntityName(), n); err != nil {
			return "", err
		}
	}

	return "", ErrSequenceExhausted
}
