package crossing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medref/medref/internal/platform/apperr"
	"github.com/medref/medref/internal/platform/db"
)

type crossingRepoPG struct{ pool db.Querier }

func NewCrossingRepoPG(pool db.Querier) CrossingRepository {
	return &crossingRepoPG{pool: pool}
}

func (r *crossingRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const crossingCols = `id, name, name_en, status, working_hours, last_update, notes`

func (r *crossingRepoPG) scanCrossing(row pgx.Row) (*Crossing, error) {
	var c Crossing
	err := row.Scan(&c.ID, &c.Name, &c.NameEn, &c.Status, &c.WorkingHours, &c.LastUpdate, &c.Notes)
	return &c, err
}

func (r *crossingRepoPG) Create(ctx context.Context, c *Crossing) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO border_crossings (id, name, name_en, status, working_hours, last_update, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Name, c.NameEn, c.Status, c.WorkingHours, c.LastUpdate, c.Notes)
	return apperr.Store("insert crossing", err)
}

func (r *crossingRepoPG) get(ctx context.Context, id uuid.UUID, suffix string) (*Crossing, error) {
	c, err := r.scanCrossing(r.conn(ctx).QueryRow(ctx,
		`SELECT `+crossingCols+` FROM border_crossings WHERE id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("crossing not found")
	}
	if err != nil {
		return nil, apperr.Store("get crossing", err)
	}
	return c, nil
}

func (r *crossingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Crossing, error) {
	return r.get(ctx, id, "")
}

func (r *crossingRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Crossing, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *crossingRepoPG) List(ctx context.Context) ([]*Crossing, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+crossingCols+` FROM border_crossings ORDER BY name_en`)
	if err != nil {
		return nil, apperr.Store("list crossings", err)
	}
	defer rows.Close()

	items := []*Crossing{}
	for rows.Next() {
		c, err := r.scanCrossing(rows)
		if err != nil {
			return nil, apperr.Store("scan crossing", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("iterate crossings", err)
	}
	return items, nil
}

func (r *crossingRepoPG) Update(ctx context.Context, c *Crossing) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE border_crossings SET status = $2, working_hours = $3, notes = $4, last_update = $5
		WHERE id = $1`,
		c.ID, c.Status, c.WorkingHours, c.Notes, c.LastUpdate)
	if err != nil {
		return apperr.Store("update crossing", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("crossing not found")
	}
	return nil
}

func (r *crossingRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM border_crossings`).Scan(&n); err != nil {
		return 0, apperr.Store("count crossings", err)
	}
	return n, nil
}
