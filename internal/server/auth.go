package server

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"

	"shipping/internal/auditlog"
	"shipping/internal/core"
)

// AuthMiddleware validates "Authorization: Bearer <masterKey>". Requests whose path equals
// one of skipPaths, or starts with a skip entry ending in "/", pass through.
// If masterKey is empty, no authentication is required.
func AuthMiddleware(masterKey string, skipPaths []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if masterKey == "" || skipAuth(c.Request().URL.Path, skipPaths) {
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return authError(c, "missing authorization header")
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				return authError(c, "invalid authorization header format, expected 'Bearer <token>'")
			}

			token := strings.TrimPrefix(authHeader, prefix)
			if subtle.ConstantTimeCompare([]byte(token), []byte(masterKey)) != 1 {
				return authError(c, "invalid master key")
			}

			return next(c)
		}
	}
}

func skipAuth(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		if path == p {
			return true
		}
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func authError(c echo.Context, message string) error {
	err := core.NewAuthenticationError(message)
	auditlog.EnrichEntryWithError(c, string(err.Type), err.Message)
	return c.JSON(err.HTTPStatusCode(), err.ToJSON())
}
