package middleware

import (
	"net/http"
	"strings"

	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/labstack/echo/v4"
)

const userIDKey = "userID"

// CurrentUserID returns the authenticated caller, or "" when the request was not authenticated.
func CurrentUserID(c echo.Context) models.UserID {
	id, _ := c.Get(userIDKey).(models.UserID)
	return id
}

func setUserID(c echo.Context, id models.UserID) {
	c.Set(userIDKey, id)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}
