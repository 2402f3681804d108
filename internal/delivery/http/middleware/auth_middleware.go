package middleware

import (
	"strings"

	"fitgate/internal/delivery/http/response"
	"fitgate/internal/domain/service"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const contextKeySessionClaims = "sessionClaims"

// AuthMiddleware guards routes behind a valid internal access token.
type AuthMiddleware struct {
	tokens service.TokenIssuer
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokens service.TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate validates the bearer access token and stashes its claims on
// the request context. Expired, revoked-kind and forged tokens fail with
// their taxonomy errors through the central error handler.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "TOKEN_MISSING", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "TOKEN_MISSING", "Invalid token format, must be Bearer token")
		}

		claims, err := m.tokens.ValidateAccess(tokenString)
		if err != nil {
			return errors.WithStack(err)
		}

		SetSessionClaims(c, claims)

		return next(c)
	}
}

// SetSessionClaims stores validated claims on the request context.
func SetSessionClaims(c echo.Context, claims *service.SessionClaims) {
	c.Set(contextKeySessionClaims, claims)
}

// GetSessionClaims returns the validated access token claims set by
// Authenticate, or false when the route ran without it.
func GetSessionClaims(c echo.Context) (*service.SessionClaims, bool) {
	claims, ok := c.Get(contextKeySessionClaims).(*service.SessionClaims)

	return claims, ok
}
