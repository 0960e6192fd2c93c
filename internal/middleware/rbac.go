package middleware

import (
	"net/http"

	"inventoryflow/internal/common"
	"inventoryflow/internal/models"

	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through only when the caller has one of roles.
// It must run after JWTMiddleware.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, ok := common.GetUserIDFromContext(ctx); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			role, _ := common.GetRoleFromContext(ctx)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin)
}
