package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	CallerEmailKey contextKey = "caller_email"
	CallerRoleKey  contextKey = "caller_role"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// SessionMiddleware validates Bearer session tokens and places the caller's
// email and role on the request context. Core logic never reads the session
// ambiently; handlers pass the caller identity down explicitly.
func SessionMiddleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, CallerEmailKey, claims.Email)
			ctx = context.WithValue(ctx, CallerRoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development that treats
// every unauthenticated request as an admin.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if CallerEmailFromContext(ctx) == "" {
				ctx = context.WithValue(ctx, CallerEmailKey, "dev@clinic.local")
				ctx = context.WithValue(ctx, CallerRoleKey, RoleAdmin)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

func CallerEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(CallerEmailKey).(string)
	return email
}

func CallerRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(CallerRoleKey).(string)
	return role
}

// IsAdmin reports whether the request context carries the admin role.
func IsAdmin(ctx context.Context) bool {
	return CallerRoleFromContext(ctx) == RoleAdmin
}
