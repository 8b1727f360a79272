package crossing

import (
	"context"

	"github.com/google/uuid"

	"github.com/medref/medref/internal/platform/apperr"
	"github.com/medref/medref/internal/platform/clock"
	"github.com/medref/medref/internal/platform/db"
)

type Service struct {
	repo         CrossingRepository
	tx           db.Transactor
	clock        clock.Clock
	strictStatus bool
}

func NewService(repo CrossingRepository, tx db.Transactor) *Service {
	return &Service{repo: repo, tx: tx, clock: clock.System()}
}

func (s *Service) SetClock(c clock.Clock) { s.clock = c }

// SetStrictStatus rejects statuses outside open, closed and restricted.
// Without it any non-null string is stored as given.
func (s *Service) SetStrictStatus(strict bool) { s.strictStatus = strict }

func (s *Service) List(ctx context.Context) ([]*Crossing, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Crossing{}
	}
	return items, nil
}

// Update applies p to the crossing and always refreshes lastUpdate, even
// when no visible field changes.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Crossing, error) {
	return s.update(ctx, id, func() (Patch, error) { return p, nil })
}

// UpdateJSON decodes body only once the crossing is known to exist, so an
// unknown id is reported as not found whatever the body holds.
func (s *Service) UpdateJSON(ctx context.Context, id string, body []byte) (*Crossing, error) {
	return s.update(ctx, id, func() (Patch, error) { return ParsePatch(body) })
}

func (s *Service) update(ctx context.Context, id string, decode func() (Patch, error)) (*Crossing, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("crossing not found")
	}

	var out *Crossing
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, uid)
		if err != nil {
			return err
		}
		p, err := decode()
		if err != nil {
			return err
		}
		if err := s.validatePatch(p); err != nil {
			return err
		}
		p.Apply(c)
		c.LastUpdate = clock.NotBefore(c.LastUpdate, s.clock.Now())
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) validatePatch(p Patch) error {
	if !p.Status.Set {
		return nil
	}
	if p.Status.Value == nil {
		return apperr.Validation("status cannot be null")
	}
	if s.strictStatus && !validStatuses[*p.Status.Value] {
		return apperr.Validation("invalid status: %s", *p.Status.Value)
	}
	return nil
}

// Create stores a new crossing, defaulting status to open. Used by the
// seeder; the API never creates crossings.
func (s *Service) Create(ctx context.Context, c *Crossing) error {
	if c.Name == "" || c.NameEn == "" {
		return apperr.Validation("name and nameEn are required")
	}
	if c.Status == "" {
		c.Status = StatusOpen
	}
	if c.LastUpdate.IsZero() {
		c.LastUpdate = s.clock.Now()
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
