package record

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository stores medical records. Soft-deleted records are never
// returned by any read.
type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByUser returns one page ordered by date_of_visit then created_at,
	// newest first, plus the total count.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error)
	// AllByUser returns every record of the user in ListByUser order.
	AllByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error)
	// ListByIDs returns the records among ids, in the order ids lists them.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Record, error)
	Update(ctx context.Context, r *Record) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}
