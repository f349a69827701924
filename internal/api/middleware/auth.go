package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/element-app/backend/internal/api/metrics"
	"github.com/element-app/backend/internal/core/domain"
)

// Context keys set by the Auth middleware and read by RBAC and handlers.
const (
	CtxUserID = "user_id"
	CtxRoleID = "role_id"
)

// TokenVerifier is the slice of the token service the gate needs.
type TokenVerifier interface {
	Verify(token string) (domain.Claims, error)
}

// Auth extracts the bearer credential, verifies it and injects the identity
// into the request context. A missing header fails fast before any token
// parsing. Downstream handlers never run on a failed verification.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				metrics.AuthFailuresTotal.WithLabelValues("missing_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRoleID, claims.RoleID)

			return next(c)
		}
	}
}
