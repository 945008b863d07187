package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func runJWTAuth(t *testing.T, token string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/signups", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTAuthStoresClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   float64(42),
		"nethz": "alice",
		"admin": true,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	rec, c := runJWTAuth(t, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", c.Get("nethz"))
	assert.Equal(t, true, c.Get("admin"))
}

func TestJWTAuthRejectsMissingNethzClaim(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": float64(42),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, _ := runJWTAuth(t, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsEmptyNethzClaim(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   float64(42),
		"nethz": "",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	rec, _ := runJWTAuth(t, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	rec, _ := runJWTAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
