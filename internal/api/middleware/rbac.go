package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

var errMissingClaims = domain.NewError(domain.ErrUnauthorized, "missing authentication claims")

// RequireRoles rejects callers whose role is not one of allowed. It must run
// after Auth.
func RequireRoles(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(domain.Role)
			if !ok || role == "" {
				return errMissingClaims
			}
			if err := domain.Authorize(role, allowed...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequirePolicy is RequireRoles with the roles registered for op.
func RequirePolicy(op domain.Operation) echo.MiddlewareFunc {
	return RequireRoles(domain.RolesFor(op)...)
}
