package changelog

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
	"github.com/Zaqwedo/denta-crm/pkg/pagination"
)

// RecordReader fetches a live patient row under the caller's scope.
// Implemented by the patient service.
type RecordReader interface {
	Get(ctx context.Context, scope patient.Scope, id uuid.UUID) (*patient.Record, error)
}

type Handler struct {
	svc     *Service
	records RecordReader
	scopes  patient.ScopeResolver
}

func NewHandler(svc *Service, records RecordReader, scopes patient.ScopeResolver) *Handler {
	return &Handler{svc: svc, records: records, scopes: scopes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/changes", h.ListChanges)
}

func (h *Handler) ListChanges(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	scope, err := h.scopes.ScopeFor(ctx, auth.CallerEmailFromContext(ctx), auth.CallerRoleFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve caller scope")
	}

	// History follows the same visibility rule as the row itself: restricted
	// callers only read the change log of patients they can see, and an
	// out-of-scope id reads as not found. Admins skip the live-row check so
	// the history of archived patients stays reachable.
	if !scope.AllowAll {
		if _, err := h.records.Get(ctx, scope, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, patient.ErrNotVisible) {
				return echo.NewHTTPError(http.StatusNotFound, "patient not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(ctx, id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
