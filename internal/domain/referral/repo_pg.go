package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medref/medref/internal/platform/apperr"
	"github.com/medref/medref/internal/platform/db"
)

const referralNumberConstraint = "medical_referrals_referral_number_key"

type referralRepoPG struct{ pool db.Querier }

func NewReferralRepoPG(pool db.Querier) ReferralRepository {
	return &referralRepoPG{pool: pool}
}

func (r *referralRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const referralCols = `id, patient_id, patient_name, referral_number, destination,
	status, approval_date, medical_condition, created_at`

func (r *referralRepoPG) scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(&ref.ID, &ref.PatientID, &ref.PatientName, &ref.ReferralNumber, &ref.Destination,
		&ref.Status, &ref.ApprovalDate, &ref.MedicalCondition, &ref.CreatedAt)
	return &ref, err
}

func (r *referralRepoPG) Create(ctx context.Context, ref *Referral) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_referrals (id, patient_id, patient_name, referral_number, destination,
			status, approval_date, medical_condition, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		ref.ID, ref.PatientID, ref.PatientName, ref.ReferralNumber, ref.Destination,
		ref.Status, ref.ApprovalDate, ref.MedicalCondition, ref.CreatedAt)
	if db.IsUniqueViolation(err, referralNumberConstraint) {
		return apperr.Conflict("referral number already exists")
	}
	return apperr.Store("insert referral", err)
}

func (r *referralRepoPG) getOne(ctx context.Context, where string, arg interface{}) (*Referral, error) {
	ref, err := r.scanReferral(r.conn(ctx).QueryRow(ctx, `SELECT `+referralCols+` FROM medical_referrals WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("referral not found")
	}
	if err != nil {
		return nil, apperr.Store("get referral", err)
	}
	return ref, nil
}

func (r *referralRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *referralRepoPG) GetByReferralNumber(ctx context.Context, number string) (*Referral, error) {
	return r.getOne(ctx, "referral_number = $1", number)
}

func (r *referralRepoPG) Search(ctx context.Context, c SearchCriteria) ([]*Referral, error) {
	query, args := buildSearchQuery(c)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("search referrals", err)
	}
	defer rows.Close()

	items := []*Referral{}
	for rows.Next() {
		ref, err := r.scanReferral(rows)
		if err != nil {
			return nil, apperr.Store("scan referral", err)
		}
		items = append(items, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("iterate referrals", err)
	}
	return items, nil
}

// buildSearchQuery ANDs a case-insensitive substring match per non-empty
// criterion. LIKE wildcards in the input are matched literally.
func buildSearchQuery(c SearchCriteria) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(column, value string) {
		args = append(args, escapeLike(value))
		clauses = append(clauses, fmt.Sprintf(`%s ILIKE '%%' || $%d || '%%' ESCAPE '\'`, column, len(args)))
	}
	if c.PatientID != "" {
		add("patient_id", c.PatientID)
	}
	if c.ReferralNumber != "" {
		add("referral_number", c.ReferralNumber)
	}

	query := `SELECT ` + referralCols + ` FROM medical_referrals`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, referral_number`
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *referralRepoPG) Tally(ctx context.Context, since, until time.Time) (Tally, error) {
	var t Tally
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE created_at >= $3 AND created_at <= $4)
		FROM medical_referrals`,
		StatusApproved, StatusPending, since, until,
	).Scan(&t.Total, &t.Approved, &t.Pending, &t.InWindow)
	if err != nil {
		return Tally{}, apperr.Store("tally referrals", err)
	}
	return t, nil
}

func (r *referralRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_referrals`).Scan(&n); err != nil {
		return 0, apperr.Store("count referrals", err)
	}
	return n, nil
}
