// Package seed loads the sample referrals, border crossings and summary
// statistics a fresh installation starts with.
package seed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medref/medref/internal/domain/crossing"
	"github.com/medref/medref/internal/domain/referral"
	"github.com/medref/medref/internal/domain/statistics"
	"github.com/medref/medref/internal/platform/clock"
	"github.com/medref/medref/internal/platform/db"
)

const day = 24 * time.Hour

type sampleReferral struct {
	patientID, patientName, number string
	destination, condition         string
	status                         string
	createdAgo                     time.Duration
	approvedAgo                    time.Duration // zero means no approval date
}

var sampleReferrals = []sampleReferral{
	{"PAT001", "أحمد محمد علي", "REF2024001", "مستشفى القدس - القدس", "جراحة القلب", referral.StatusApproved, 10 * day, 5 * day},
	{"PAT002", "فاطمة أحمد حسن", "REF2024002", "مستشفى الشفاء - غزة", "علاج الأورام", referral.StatusPending, 7 * day, 0},
	{"PAT003", "محمد عبد الله قاسم", "REF2024003", "مستشفى الملك حسين - عمان", "جراحة العظام", referral.StatusLocalFollowup, 15 * day, 2 * day},
	{"PAT004", "سارة محمود خليل", "REF2024004", "مستشفى الملك فيصل التخصصي - الرياض", "زراعة الكلى", referral.StatusApproved, 20 * day, 1 * day},
	{"PAT005", "عمر حسام الدين", "REF2024005", "مستشفى الجامعة الأردنية - عمان", "علاج طبيعي", referral.StatusRejected, 12 * day, 0},
}

var sampleCrossings = []struct {
	name, nameEn, status, hours, notes string
}{
	{"معبر الكرامة", "King Hussein Bridge", crossing.StatusOpen, "24 ساعة", "مفتوح للمرضى والمرافقين"},
	{"معبر رفح", "Rafah Crossing", crossing.StatusClosed, "مغلق مؤقتاً", "مغلق بسبب الأوضاع الأمنية"},
	{"معبر بيت حانون", "Erez Crossing", crossing.StatusRestricted, "8:00 - 16:00", "مفتوح للحالات الطبية الطارئة فقط"},
	{"معبر القنيطرة", "Quneitra Crossing", crossing.StatusOpen, "6:00 - 18:00", "مفتوح للحالات الطبية المعتمدة"},
}

// sampleStatistics are display figures, not derived from the sample referrals.
var sampleStatistics = statistics.Statistics{
	TotalReferrals:        1247,
	CompletedTravels:      892,
	MonthlyReferrals:      156,
	PendingReferrals:      234,
	ApprovalRate:          78,
	AverageProcessingDays: 12,
}

// Result counts what a run inserted.
type Result struct {
	Referrals int
	Crossings int
	Skipped   bool
}

type Seeder struct {
	referrals referral.ReferralRepository
	crossings crossing.CrossingRepository
	stats     statistics.StatisticsRepository
	tx        db.Transactor
	clock     clock.Clock
	logger    zerolog.Logger
}

func New(referrals referral.ReferralRepository, crossings crossing.CrossingRepository,
	stats statistics.StatisticsRepository, tx db.Transactor, logger zerolog.Logger) *Seeder {
	return &Seeder{
		referrals: referrals,
		crossings: crossings,
		stats:     stats,
		tx:        tx,
		clock:     clock.System(),
		logger:    logger,
	}
}

func (s *Seeder) SetClock(c clock.Clock) { s.clock = c }

// Run inserts the sample data in one transaction. It does nothing when any
// referral already exists.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res = Result{}
		n, err := s.referrals.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			res.Skipped = true
			return nil
		}

		now := s.clock.Now()
		for _, sr := range sampleReferrals {
			if err := s.referrals.Create(ctx, sr.build(now)); err != nil {
				return err
			}
			res.Referrals++
		}

		for _, sc := range sampleCrossings {
			hours, notes := sc.hours, sc.notes
			c := &crossing.Crossing{
				Name:         sc.name,
				NameEn:       sc.nameEn,
				Status:       sc.status,
				WorkingHours: &hours,
				Notes:        &notes,
				LastUpdate:   now,
			}
			if err := s.crossings.Create(ctx, c); err != nil {
				return err
			}
			res.Crossings++
		}

		if err := s.stats.EnsureExists(ctx, now); err != nil {
			return err
		}
		st, err := s.stats.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		id := st.ID
		*st = sampleStatistics
		st.ID = id
		st.LastUpdated = now
		return s.stats.Update(ctx, st)
	})
	if err != nil {
		return Result{}, err
	}

	if res.Skipped {
		s.logger.Info().Msg("referrals already present, skipping sample data")
	} else {
		s.logger.Info().
			Int("referrals", res.Referrals).
			Int("crossings", res.Crossings).
			Msg("sample data loaded")
	}
	return res, nil
}

func (sr sampleReferral) build(now time.Time) *referral.Referral {
	r := &referral.Referral{
		PatientID:        sr.patientID,
		PatientName:      sr.patientName,
		ReferralNumber:   sr.number,
		Destination:      sr.destination,
		Status:           sr.status,
		MedicalCondition: sr.condition,
		CreatedAt:        now.Add(-sr.createdAgo),
	}
	if sr.approvedAgo > 0 {
		at := now.Add(-sr.approvedAgo)
		r.ApprovalDate = &at
	}
	return r
}
