package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
	RoleProvider  = "provider"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one an account may hold.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleCaregiver, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// HasRole reports whether roles grants any of want. Admin implies every role.
func HasRole(roles []string, want ...string) bool {
	for _, has := range roles {
		if has == RoleAdmin {
			return true
		}
		for _, w := range want {
			if has == w {
				return true
			}
		}
	}
	return false
}

// IsClinical reports whether the caller may act on other users' records.
func IsClinical(roles []string) bool {
	return HasRole(roles, RoleProvider)
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
