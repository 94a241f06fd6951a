package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/swasthya/healthcard/internal/domain/emergency"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/platform/auth"
	"github.com/swasthya/healthcard/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the dashboard endpoints. Every route is admin only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	g.GET("/summary", h.GetSummary)
	g.GET("/users", h.ListUsers)
	g.GET("/access-logs", h.ListAccessLogs)
}

func (h *Handler) internal(c echo.Context, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("admin query failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func (h *Handler) GetSummary(c echo.Context) error {
	s, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Users(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return h.internal(c, err)
	}
	if items == nil {
		items = []*identity.User{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAccessLogs(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.AccessLogs(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return h.internal(c, err)
	}
	if items == nil {
		items = []*emergency.AccessLog{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
