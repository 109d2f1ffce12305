package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// httpError maps the error taxonomy onto HTTP statuses. Store and unknown
// failures do not leak their message to the client.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, apperrors.ErrInvalidOperation),
		errors.Is(err, apperrors.ErrInvalidCursor),
		errors.Is(err, apperrors.ErrInvalidEvent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Service temporarily unavailable").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}
