package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

const InternalTokenHeader = "X-Internal-Token"

// InternalTokenMiddleware guards service-to-service routes with a shared secret.
// An empty secret disables the routes.
func InternalTokenMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return echo.NewHTTPError(http.StatusForbidden, "Internal API is disabled")
			}
			given := c.Request().Header.Get(InternalTokenHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid internal token")
			}
			return next(c)
		}
	}
}
