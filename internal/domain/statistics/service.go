package statistics

import (
	"context"
	"time"

	"github.com/medref/medref/internal/domain/referral"
	"github.com/medref/medref/internal/platform/clock"
	"github.com/medref/medref/internal/platform/db"
	"github.com/medref/medref/internal/platform/events"
)

// MonthlyWindow is the trailing period counted as monthlyReferrals.
const MonthlyWindow = 30 * 24 * time.Hour

// ReferralTally is the read-only view of the referral store that
// recomputation needs. *referral.Service implements it.
type ReferralTally interface {
	Tally(ctx context.Context, since, until time.Time) (referral.Tally, error)
}

type Service struct {
	repo      StatisticsRepository
	referrals ReferralTally
	tx        db.Transactor
	clock     clock.Clock
}

func NewService(repo StatisticsRepository, referrals ReferralTally, tx db.Transactor) *Service {
	return &Service{repo: repo, referrals: referrals, tx: tx, clock: clock.System()}
}

func (s *Service) SetClock(c clock.Clock) { s.clock = c }

// Get returns the summary row, creating a zeroed one first if needed.
func (s *Service) Get(ctx context.Context) (*Statistics, error) {
	var out *Statistics
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.EnsureExists(ctx, s.clock.Now()); err != nil {
			return err
		}
		st, err := s.repo.Get(ctx)
		out = st
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Recompute overwrites the derived counters from a single referral snapshot.
// All counters and lastUpdated commit together or not at all.
// averageProcessingDays is left alone, as is approvalRate when there are no
// referrals.
func (s *Service) Recompute(ctx context.Context) (*Statistics, error) {
	var out *Statistics
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		now := s.clock.Now()
		if err := s.repo.EnsureExists(ctx, now); err != nil {
			return err
		}
		st, err := s.repo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		t, err := s.referrals.Tally(ctx, now.Add(-MonthlyWindow), now)
		if err != nil {
			return err
		}

		st.TotalReferrals = t.Total
		st.CompletedTravels = t.Approved
		st.PendingReferrals = t.Pending
		st.MonthlyReferrals = t.InWindow
		if t.Total > 0 {
			st.ApprovalRate = t.Approved * 100 / t.Total
		}
		st.LastUpdated = clock.NotBefore(st.LastUpdated, now)

		if err := s.repo.Update(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyManualUpdate overwrites the named counters verbatim. Unlike Get it
// never creates the row.
func (s *Service) ApplyManualUpdate(ctx context.Context, u ManualUpdate) (*Statistics, error) {
	return s.applyManual(ctx, func() (ManualUpdate, error) { return u, nil })
}

// ApplyManualJSON decodes body only after the row is found, so a missing
// row is reported as not found whatever the body holds.
func (s *Service) ApplyManualJSON(ctx context.Context, body []byte) (*Statistics, error) {
	return s.applyManual(ctx, func() (ManualUpdate, error) { return ParseManualUpdate(body) })
}

func (s *Service) applyManual(ctx context.Context, decode func() (ManualUpdate, error)) (*Statistics, error) {
	var out *Statistics
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		st, err := s.repo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		u, err := decode()
		if err != nil {
			return err
		}
		u.apply(st)
		st.LastUpdated = clock.NotBefore(st.LastUpdated, s.clock.Now())
		if err := s.repo.Update(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecomputeOnReferralCreated is an events.Handler for referral.created.
func (s *Service) RecomputeOnReferralCreated(ctx context.Context, _ events.Event) error {
	_, err := s.Recompute(ctx)
	return err
}
