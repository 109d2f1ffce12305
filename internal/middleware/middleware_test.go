package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func run(t *testing.T, mw echo.MiddlewareFunc, header, value string) (models.UserID, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.Header.Set(header, value)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen models.UserID
	err := mw(func(c echo.Context) error {
		seen = CurrentUserID(c)
		return nil
	})(c)
	return seen, err
}

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	mw := JWTAuthMiddleware(testSecret)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	valid := signed(t, jwt.SigningMethodHS256, []byte(testSecret), &models.JwtCustomClaims{
		UserID:           "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
	})
	userID, err := run(t, mw, "Authorization", "Bearer "+valid)
	require.NoError(t, err)
	assert.Equal(t, models.UserID("alice"), userID)

	subjectOnly := signed(t, jwt.SigningMethodHS256, []byte(testSecret), &models.JwtCustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", ExpiresAt: future},
	})
	userID, err = run(t, mw, "Authorization", "Bearer "+subjectOnly)
	require.NoError(t, err)
	assert.Equal(t, models.UserID("bob"), userID)

	rejected := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"wrong secret": "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("other"), &models.JwtCustomClaims{
			UserID: "alice", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
		}),
		"expired": "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), &models.JwtCustomClaims{
			UserID: "alice", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		}),
		"no user id": "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), &models.JwtCustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
		}),
		"unsigned": "Bearer " + signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &models.JwtCustomClaims{
			UserID: "alice",
		}),
	}
	for name, value := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, mw, "Authorization", value)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		})
	}
}

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return &auth.Token{UID: uid}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	mw := FirebaseAuthMiddleware(fakeVerifier{"good-token": "firebase-uid-1"})

	userID, err := run(t, mw, "Authorization", "Bearer good-token")
	require.NoError(t, err)
	assert.Equal(t, models.UserID("firebase-uid-1"), userID)

	_, err = run(t, mw, "Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = run(t, mw, "Authorization", "")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestInternalTokenMiddleware(t *testing.T) {
	_, err := run(t, InternalTokenMiddleware("s3cret"), InternalTokenHeader, "s3cret")
	assert.NoError(t, err)

	_, err = run(t, InternalTokenMiddleware("s3cret"), InternalTokenHeader, "guess")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = run(t, InternalTokenMiddleware(""), InternalTokenHeader, "")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}
