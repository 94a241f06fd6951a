package emergency

import (
	"context"

	"github.com/google/uuid"

	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/domain/record"
)

type ShareTokenRepository interface {
	Create(ctx context.Context, t *ShareToken) error
	GetByToken(ctx context.Context, token string) (*ShareToken, error)
	// Consume flips used from false to true. It returns ErrTokenUsed when the
	// token was already consumed, so at most one caller ever succeeds.
	Consume(ctx context.Context, id uuid.UUID) error
}

type AccessLogRepository interface {
	Append(ctx context.Context, l *AccessLog) error
	// List returns entries newest first plus the total count.
	List(ctx context.Context, limit, offset int) ([]*AccessLog, int, error)
}

// ProfileSource is the slice of the profile store the core reads.
type ProfileSource interface {
	GetByPublicID(ctx context.Context, publicID string) (*healthprofile.Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*healthprofile.Profile, error)
}

type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type RecordSource interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*record.Record, error)
	AllByUser(ctx context.Context, userID uuid.UUID) ([]*record.Record, error)
}
