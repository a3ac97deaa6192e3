package staff

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Whitelist management is admin-only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/staff", auth.RequireAdmin())
	admin.GET("", h.ListAccess)
	admin.GET("/:email", h.GetAccess)
	admin.PUT("/:email", h.UpsertAccess)
	admin.DELETE("/:email", h.DeleteAccess)
}

func (h *Handler) ListAccess(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetAccess(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "no access entry for this email")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpsertAccess(c echo.Context) error {
	var a Access
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.Email = c.Param("email")
	if err := h.svc.Upsert(c.Request().Context(), &a); err != nil {
		if errors.Is(err, ErrEmailRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAccess(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("email")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
