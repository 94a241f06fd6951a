package identity

import (
	"slices"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/swasthya/healthcard/internal/platform/auth"
)

// Actor is the authenticated caller of a domain operation.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// Clinical reports whether the actor may act on other users' data.
func (a Actor) Clinical() bool { return auth.IsClinical(a.Roles) }

func (a Actor) IsAdmin() bool { return auth.HasRole(a.Roles, auth.RoleAdmin) }

// IsProvider reports whether the actor holds the provider role itself, not
// through admin.
func (a Actor) IsProvider() bool { return slices.Contains(a.Roles, auth.RoleProvider) }

// Owns reports whether the actor is the user identified by id.
func (a Actor) Owns(id uuid.UUID) bool { return a.ID == id }

// ActorFrom returns the caller of c, or a 401 when the request is anonymous.
func ActorFrom(c echo.Context) (Actor, error) {
	id, err := CallerID(c)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: id, Roles: auth.RolesFromContext(c.Request().Context())}, nil
}
