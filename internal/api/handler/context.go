package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/element-app/backend/internal/api/middleware"
)

// ctxIdentity extracts the identity injected by the Auth middleware and
// performs a fast-fail check before any service call: both ids must be
// present, which proves the middleware ran on this route.
func ctxIdentity(c echo.Context) (userID, roleID int64, err error) {
	userID, ok := c.Get(middleware.CtxUserID).(int64)
	if !ok {
		return 0, 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	roleID, ok = c.Get(middleware.CtxRoleID).(int64)
	if !ok {
		return 0, 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	return userID, roleID, nil
}
