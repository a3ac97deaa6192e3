package patient

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
	"github.com/Zaqwedo/denta-crm/pkg/pagination"
)

// ScopeResolver turns the authenticated caller into a row visibility scope.
// Implemented by the staff service.
type ScopeResolver interface {
	ScopeFor(ctx context.Context, email, role string) (Scope, error)
}

type Handler struct {
	svc    *Service
	scopes ScopeResolver
}

func NewHandler(svc *Service, scopes ScopeResolver) *Handler {
	return &Handler{svc: svc, scopes: scopes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.POST("/patients/:id/revert", h.RevertPatient)
	api.DELETE("/patients/:id", h.DeletePatient)

	// Archive management is admin-only.
	archive := api.Group("", auth.RequireAdmin())
	archive.GET("/archive", h.ListArchived)
	archive.POST("/archive/:original_id/restore", h.RestorePatient)
}

func (h *Handler) callerScope(c echo.Context) (Scope, error) {
	ctx := c.Request().Context()
	scope, err := h.scopes.ScopeFor(ctx, auth.CallerEmailFromContext(ctx), auth.CallerRoleFromContext(ctx))
	if err != nil {
		return Scope{}, echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve caller scope")
	}
	return scope, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, ErrNotVisible):
		// Rows outside the caller's scope are indistinguishable from
		// rows that do not exist.
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoArchive):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListPatients(c echo.Context) error {
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), scope, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	createdBy := auth.CallerEmailFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), &rec, createdBy); err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.Get(c.Request().Context(), scope, id)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.ID = id
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	changedBy := auth.CallerEmailFromContext(c.Request().Context())
	updated, err := h.svc.Update(c.Request().Context(), scope, &rec, changedBy)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) RevertPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	changedBy := auth.CallerEmailFromContext(c.Request().Context())
	rec, n, err := h.svc.Revert(c.Request().Context(), scope, id, changedBy)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient":         rec,
		"fields_reverted": n,
	})
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	deletedBy := auth.CallerEmailFromContext(c.Request().Context())
	if err := h.svc.ArchiveAndRemove(c.Request().Context(), scope, id, deletedBy); err != nil {
		return mapErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListArchived(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListArchived(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RestorePatient(c echo.Context) error {
	originalID, err := uuid.Parse(c.Param("original_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Restore(c.Request().Context(), originalID)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, rec)
}
