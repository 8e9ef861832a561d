package webapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"estateflow/auth"
)

const principalKey = "principal"

// TokenVerifier resolves a bearer token into a principal. Implementations
// re-check the backing user record so stale tokens for deactivated accounts
// are rejected.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (auth.Context, error)
}

// AuthMiddleware extracts the bearer token, verifies it, and stores the
// resolved principal on the request context. Requests without a valid token
// are rejected with 401.
func AuthMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			}

			principal, err := verifier.VerifyToken(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid token"})
			}

			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose principal is not an admin.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !principal(c).IsAdmin() {
			return c.JSON(http.StatusForbidden, errorBody{Error: "admin role required"})
		}
		return next(c)
	}
}

// principal returns the authenticated caller. The auth middleware guarantees
// it is set on every protected route.
func principal(c echo.Context) auth.Context {
	p, _ := c.Get(principalKey).(auth.Context)
	return p
}
