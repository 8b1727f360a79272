//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medref/medref/internal/domain/crossing"
	"github.com/medref/medref/internal/domain/referral"
	"github.com/medref/medref/internal/domain/statistics"
	"github.com/medref/medref/internal/platform/db"
	"github.com/medref/medref/internal/seed"
)

func TestSeeder(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)

	referralRepo := referral.NewReferralRepoPG(globalDB.Pool)
	crossingRepo := crossing.NewCrossingRepoPG(globalDB.Pool)
	statsRepo := statistics.NewStatisticsRepoPG(globalDB.Pool)
	s := seed.New(referralRepo, crossingRepo, statsRepo, db.NewTransactor(globalDB.Pool), zerolog.Nop())

	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped || res.Referrals != 5 || res.Crossings != 4 {
		t.Fatalf("unexpected result %+v", res)
	}

	ref, err := referralRepo.GetByReferralNumber(ctx, "REF2024003")
	if err != nil {
		t.Fatalf("GetByReferralNumber: %v", err)
	}
	if ref.Status != referral.StatusLocalFollowup || ref.ApprovalDate == nil {
		t.Errorf("unexpected seeded referral %+v", ref)
	}

	st, err := statsRepo.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.TotalReferrals != 1247 || st.AverageProcessingDays != 12 {
		t.Errorf("unexpected seeded statistics %+v", st)
	}

	res, err = s.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !res.Skipped {
		t.Error("expected second run to skip")
	}
	n, _ := crossingRepo.Count(ctx)
	if n != 4 {
		t.Errorf("expected 4 crossings after second run, got %d", n)
	}
}

func TestMigrator_StatusAfterUp(t *testing.T) {
	ctx := context.Background()
	statuses, err := db.NewMigrator(globalDB.Pool, globalDB.MigrationsDir).Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(statuses))
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %s not applied", s.Name)
		}
	}

	n, err := db.NewMigrator(globalDB.Pool, globalDB.MigrationsDir).Up(ctx)
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no pending migrations, got %d", n)
	}
}
