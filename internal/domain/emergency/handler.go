package emergency

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swasthya/healthcard/internal/domain/identity"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated disclosure endpoints.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/e/:publicId", h.Resolve)
	g.GET("/share/:token", h.Redeem)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/share-tokens", h.Issue)
}

func requester(c echo.Context) Requester {
	return Requester{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

func (h *Handler) Resolve(c echo.Context) error {
	view, err := h.svc.Resolve(c.Request().Context(), c.Param("publicId"), requester(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) Redeem(c echo.Context) error {
	payload, err := h.svc.Redeem(c.Request().Context(), c.Param("token"), requester(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payload)
}

func (h *Handler) Issue(c echo.Context) error {
	actor, err := identity.ActorFrom(c)
	if err != nil {
		return err
	}
	var req IssueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.Issue(c.Request().Context(), actor, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, IssueResponse{
		Token:     t.Token,
		ID:        t.ID,
		ExpiresAt: t.ExpiresAt,
		SingleUse: t.SingleUse,
	})
}

var badRequestMessages = []struct {
	err error
	msg string
}{
	{ErrInvalidScope, "exactly one of record_ids or user_id is required"},
	{ErrInvalidExpiry, "expires_at must be in the future"},
	{ErrUnknownRecords, "one or more records do not exist"},
	{ErrUnknownUser, "user does not exist"},
	{ErrNothingToShare, "nothing to share"},
}

// httpError maps core errors to responses that never reveal more than the
// error class. Expired and used tokens look the same from outside.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrGone):
		return echo.NewHTTPError(http.StatusGone, "link is no longer valid")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "not allowed")
	case errors.Is(err, ErrBadRequest):
		for _, m := range badRequestMessages {
			if errors.Is(err, m.err) {
				return echo.NewHTTPError(http.StatusBadRequest, m.msg)
			}
		}
		return echo.NewHTTPError(http.StatusBadRequest, "bad request")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
