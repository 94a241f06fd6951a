package healthprofile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/swasthya/healthcard/internal/domain/identity"
)

// UserLookup resolves the account that owns a profile.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Handler struct {
	svc     *Service
	users   UserLookup
	baseURL string
}

// NewHandler builds the profile endpoints. baseURL prefixes the public
// emergency link handed back to owners.
func NewHandler(svc *Service, users UserLookup, baseURL string) *Handler {
	return &Handler{svc: svc, users: users, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/user/me")
	g.GET("", h.GetMe)
	g.POST("/health", h.UpsertHealth)
	g.GET("/public-id", h.GetPublicID)
}

type meResponse struct {
	User    *identity.User `json:"user"`
	Profile *Profile       `json:"profile"`
}

func (h *Handler) GetMe(c echo.Context) error {
	userID, err := identity.CallerID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	u, err := h.users.GetUser(ctx, userID)
	if errors.Is(err, identity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	p, err := h.svc.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, meResponse{User: u, Profile: p})
}

func (h *Handler) UpsertHealth(c echo.Context) error {
	userID, err := identity.CallerID(c)
	if err != nil {
		return err
	}
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, created, err := h.svc.Upsert(c.Request().Context(), userID, req)
	if err != nil {
		return httpError(err)
	}
	if created {
		return c.JSON(http.StatusCreated, p)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPublicID(c echo.Context) error {
	userID, err := identity.CallerID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetByUserID(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	if p.PublicEmergencyID == nil {
		return echo.NewHTTPError(http.StatusNotFound, "public emergency id not set")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"public_emergency_id": *p.PublicEmergencyID,
		"url":                 h.baseURL + "/e/" + *p.PublicEmergencyID,
	})
}

func httpError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	case errors.Is(err, ErrPublicIDTaken):
		return echo.NewHTTPError(http.StatusConflict, "public emergency id unavailable")
	case errors.Is(err, ErrExists):
		return echo.NewHTTPError(http.StatusConflict, "health profile already exists")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
