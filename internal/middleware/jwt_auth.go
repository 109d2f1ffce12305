package middleware

import (
	"net/http"

	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// JWTAuthMiddleware checks for a valid HMAC-signed JWT and stores the caller's id.
// The id is read from the user_id claim, falling back to sub.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrSignatureInvalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			if !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			userID := claims.UserID
			if userID == "" {
				userID = models.UserID(claims.Subject)
			}
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token carries no user id")
			}

			c.Set("user", claims)
			setUserID(c, userID)
			return next(c)
		}
	}
}
