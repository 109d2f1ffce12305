package handlers

import (
	"net/http"
	"testing"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperrors.Invalid("self follow"), http.StatusBadRequest},
		{errors.Wrap(apperrors.ErrInvalidCursor, "bad base64"), http.StatusBadRequest},
		{errors.Wrap(apperrors.ErrInvalidEvent, "no rule"), http.StatusBadRequest},
		{errors.Wrap(apperrors.ErrNotFound, "subscription"), http.StatusNotFound},
		{apperrors.Store("list followers", errors.New("dial tcp: refused")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
		{echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
	}
	for _, tc := range cases {
		var he *echo.HTTPError
		require.True(t, errors.As(httpError(tc.err), &he))
		assert.Equal(t, tc.status, he.Code, tc.err.Error())
	}

	var he *echo.HTTPError
	require.True(t, errors.As(httpError(apperrors.Store("op", errors.New("password=hunter2"))), &he))
	assert.NotContains(t, he.Message, "hunter2")
}
