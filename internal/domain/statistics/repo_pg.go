package statistics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medref/medref/internal/platform/apperr"
	"github.com/medref/medref/internal/platform/db"
)

type statisticsRepoPG struct{ pool db.Querier }

func NewStatisticsRepoPG(pool db.Querier) StatisticsRepository {
	return &statisticsRepoPG{pool: pool}
}

func (r *statisticsRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const statisticsCols = `id, total_referrals, completed_travels, monthly_referrals, pending_referrals,
	approval_rate, average_processing_days, last_updated`

func (r *statisticsRepoPG) EnsureExists(ctx context.Context, now time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO statistics (id, last_updated) VALUES ($1, $2)
		ON CONFLICT (singleton) DO NOTHING`, uuid.New(), now)
	return apperr.Store("create statistics", err)
}

func (r *statisticsRepoPG) get(ctx context.Context, suffix string) (*Statistics, error) {
	var s Statistics
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+statisticsCols+` FROM statistics WHERE singleton`+suffix).Scan(
		&s.ID, &s.TotalReferrals, &s.CompletedTravels, &s.MonthlyReferrals, &s.PendingReferrals,
		&s.ApprovalRate, &s.AverageProcessingDays, &s.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("statistics not available")
	}
	if err != nil {
		return nil, apperr.Store("get statistics", err)
	}
	return &s, nil
}

func (r *statisticsRepoPG) Get(ctx context.Context) (*Statistics, error) {
	return r.get(ctx, "")
}

func (r *statisticsRepoPG) GetForUpdate(ctx context.Context) (*Statistics, error) {
	return r.get(ctx, " FOR UPDATE")
}

func (r *statisticsRepoPG) Update(ctx context.Context, s *Statistics) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE statistics SET total_referrals = $2, completed_travels = $3, monthly_referrals = $4,
			pending_referrals = $5, approval_rate = $6, average_processing_days = $7, last_updated = $8
		WHERE id = $1`,
		s.ID, s.TotalReferrals, s.CompletedTravels, s.MonthlyReferrals, s.PendingReferrals,
		s.ApprovalRate, s.AverageProcessingDays, s.LastUpdated)
	if err != nil {
		return apperr.Store("update statistics", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("statistics not available")
	}
	return nil
}
