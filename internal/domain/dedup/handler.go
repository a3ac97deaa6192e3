package dedup

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
	"github.com/Zaqwedo/denta-crm/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	scopes patient.ScopeResolver
}

func NewHandler(svc *Service, scopes patient.ScopeResolver) *Handler {
	return &Handler{svc: svc, scopes: scopes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/duplicates", h.ListDuplicates)
	api.POST("/duplicates/merge/preview", h.PreviewMerge)
	api.POST("/duplicates/merge", h.Merge)
	api.POST("/duplicates/ignore", h.Ignore)
}

func (h *Handler) callerScope(c echo.Context) (patient.Scope, error) {
	ctx := c.Request().Context()
	scope, err := h.scopes.ScopeFor(ctx, auth.CallerEmailFromContext(ctx), auth.CallerRoleFromContext(ctx))
	if err != nil {
		return patient.Scope{}, echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve caller scope")
	}
	return scope, nil
}

func (h *Handler) ListDuplicates(c echo.Context) error {
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	groups, err := h.svc.Duplicates(c.Request().Context(), scope)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if groups == nil {
		groups = []*Group{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"groups": groups,
		"total":  len(groups),
	})
}

type previewRequest struct {
	Keys []string `json:"keys"`
}

func (h *Handler) PreviewMerge(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	preview, err := h.svc.StartMerge(c.Request().Context(), scope, req.Keys)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, preview)
}

func (h *Handler) Merge(c echo.Context) error {
	ctx := c.Request().Context()
	var req MergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	scope, err := h.callerScope(c)
	if err != nil {
		return err
	}
	n, err := h.svc.Merge(ctx, scope, req)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"records_updated": n})
}

type ignoreRequest struct {
	KeyA string `json:"key_a"`
	KeyB string `json:"key_b"`
}

func (h *Handler) Ignore(c echo.Context) error {
	var req ignoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Ignore(c.Request().Context(), req.KeyA, req.KeyB); err != nil {
		return mapErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrTooFewToMerge),
		errors.Is(err, ErrSamePair),
		errors.Is(err, ErrKeysRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
