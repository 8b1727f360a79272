package referral

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReferralRepository returns apperr NotFound when a lookup misses and
// apperr Conflict when referral_number is already taken.
type ReferralRepository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)
	GetByReferralNumber(ctx context.Context, number string) (*Referral, error)
	Search(ctx context.Context, c SearchCriteria) ([]*Referral, error)
	Tally(ctx context.Context, since, until time.Time) (Tally, error)
	Count(ctx context.Context) (int, error)
}
