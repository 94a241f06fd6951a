package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	// Create fails with ErrEmailTaken when the email is already in use.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Search matches q against full name and email, case insensitively.
	Search(ctx context.Context, q string, limit, offset int) ([]*User, int, error)
	CountByRole(ctx context.Context) (RoleCounts, error)
}
