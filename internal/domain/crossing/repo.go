package crossing

import (
	"context"

	"github.com/google/uuid"
)

type CrossingRepository interface {
	Create(ctx context.Context, c *Crossing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Crossing, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Crossing, error)
	List(ctx context.Context) ([]*Crossing, error)
	Update(ctx context.Context, c *Crossing) error
	Count(ctx context.Context) (int, error)
}
