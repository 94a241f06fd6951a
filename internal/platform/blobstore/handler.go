package blobstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/swasthya/healthcard/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/files")
	g.POST("/upload", h.handleUpload)
	g.GET("/:id", h.handleGetMetadata)
	g.GET("/:id/download", h.handleDownload)
	g.DELETE("/:id", h.handleDelete)
}

func callerFrom(c echo.Context) (Caller, error) {
	ctx := c.Request().Context()
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	roles := auth.RolesFromContext(ctx)
	return Caller{
		ID:       id,
		Clinical: auth.IsClinical(roles),
		Admin:    auth.HasRole(roles, auth.RoleAdmin),
	}, nil
}

func callerAndID(c echo.Context) (Caller, uuid.UUID, error) {
	caller, err := callerFrom(c)
	if err != nil {
		return Caller{}, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Caller{}, uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	return caller, id, nil
}

// uploadResponse is the shape records attach as a file reference.
type uploadResponse struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	Filename string    `json:"filename"`
	Mime     string    `json:"mime"`
	Size     int64     `json:"size"`
}

func (h *Handler) handleUpload(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	f, err := h.svc.Upload(c.Request().Context(), caller, file.Filename, src)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, uploadResponse{ID: f.ID, URL: f.URL, Filename: f.Filename, Mime: f.Mime, Size: f.Size})
}

func (h *Handler) handleGetMetadata(c echo.Context) error {
	caller, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) handleDownload(c echo.Context) error {
	caller, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	rc, f, err := h.svc.Open(c.Request().Context(), caller, id)
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, f.Filename))
	return c.Stream(http.StatusOK, f.Mime, rc)
}

func (h *Handler) handleDelete(c echo.Context) error {
	caller, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrMissingFileName), errors.Is(err, ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "not allowed")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
