package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
	"github.com/comunidadlabs/community-auth/internal/core/normalize"
)

// RequireRole enforces rank-based access control: the caller's role must
// carry at least the privileges of min. The role claim may arrive as any
// legacy alias; it is normalized before the rank comparison.
func RequireRole(min domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, _ := c.Get("role").(string)
			if !normalize.Role(raw).AtLeast(min) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
