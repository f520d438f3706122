package middleware // middleware provides reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-auth/internal/auth"
)

// Context keys populated by Authenticate for downstream handlers.
const (
	CtxUser   = "user"    // model.User of the verified principal
	CtxUserID = "user_id" // uint64 subject id
	CtxRole   = "role"    // role claim string
)

// Authenticate returns an Echo middleware that validates a Bearer
// access token through the coordinator and injects the resolved
// principal into the request context.  The coordinator also checks
// that the account is still active, so a disabled user is rejected
// even while holding a structurally valid token.
func Authenticate(coord *auth.Coordinator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			u, claims, err := coord.Authenticate(c.Request().Context(), raw)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrUserInactive):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
			case errors.Is(err, auth.ErrStoreUnavailable):
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
			default:
				// Expired, malformed and bad-signature all collapse to
				// one message at the boundary.
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUser, u)
			c.Set(CtxUserID, u.ID)
			c.Set(CtxRole, claims.Role())
			return next(c)
		}
	}
}
