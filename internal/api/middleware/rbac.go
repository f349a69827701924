package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/element-app/backend/internal/core/domain"
)

// PermissionChecker resolves a role id against the permission table.
type PermissionChecker interface {
	Allows(ctx context.Context, roleID int64, perm domain.Permission) (bool, error)
}

// RequirePermission enforces that the authenticated caller's role carries
// perm. Must run after Auth; an authenticated but unprivileged caller gets
// 403 and the handler never executes.
func RequirePermission(checker PermissionChecker, perm domain.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roleID, ok := c.Get(CtxRoleID).(int64)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			allowed, err := checker.Allows(c.Request().Context(), roleID, perm)
			if err != nil {
				return err
			}
			if !allowed {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
