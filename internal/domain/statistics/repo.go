package statistics

import (
	"context"
	"time"
)

type StatisticsRepository interface {
	// EnsureExists inserts a zeroed row unless one is already present.
	EnsureExists(ctx context.Context, now time.Time) error
	// Get returns apperr NotFound when no row exists.
	Get(ctx context.Context) (*Statistics, error)
	// GetForUpdate is Get with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context) (*Statistics, error)
	Update(ctx context.Context, s *Statistics) error
}
