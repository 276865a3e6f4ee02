package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
)

// Context keys set by Auth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

var (
	errMissingAuthHeader = domain.NewError(domain.ErrUnauthorized, "missing authorization header")
	errInvalidAuthHeader = domain.NewError(domain.ErrUnauthorized, "invalid authorization header")
	errInvalidToken      = domain.NewError(domain.ErrUnauthorized, "invalid token")
)

// Auth validates the bearer token and injects its claims into the context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return errMissingAuthHeader
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return errInvalidAuthHeader
			}

			claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return errInvalidToken
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextRole, claims.Role)

			return next(c)
		}
	}
}
