package healthprofile

import (
	"context"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	// Create fails with ErrExists for a second profile of the same user and
	// ErrPublicIDTaken when the public id is held by another profile.
	Create(ctx context.Context, p *Profile) error
	// Update writes every field except the public id.
	Update(ctx context.Context, p *Profile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetByPublicID(ctx context.Context, publicID string) (*Profile, error)
	// RotatePublicID replaces the user's public id with newID and retires
	// the previous one.
	RotatePublicID(ctx context.Context, userID uuid.UUID, newID string) (*Profile, error)
	// PublicIDAvailable is false when id is live or retired.
	PublicIDAvailable(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}
