package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avorland/course-registration/internal/config"
)

func TestCatalogueKeyIgnoresCaller(t *testing.T) {
	e := echo.New()
	key := func(target, ip string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.RemoteAddr = ip
		return catalogueKey(e.NewContext(req, httptest.NewRecorder()))
	}

	assert.Equal(t, key("/v1/courses?lecture=1", "10.0.0.1:1"), key("/v1/courses?lecture=1", "10.0.0.2:2"))
	assert.NotEqual(t, key("/v1/courses?lecture=1", "10.0.0.1:1"), key("/v1/courses?lecture=2", "10.0.0.1:1"))
	assert.NotEqual(t, key("/v1/courses", "10.0.0.1:1"), key("/v1/lectures", "10.0.0.1:1"))
}

func TestBodyRecorderSpillsOversizedBody(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}
	_, err := rec.Write([]byte("12345"))
	require.NoError(t, err)
	assert.True(t, rec.spilled)
	assert.Zero(t, rec.body.Len())
}

func TestBodyRecorderKeepsSmallBody(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 16}
	_, err := rec.Write([]byte("ok"))
	require.NoError(t, err)
	assert.False(t, rec.spilled)
	assert.Equal(t, "ok", rec.body.String())
}

func TestCatalogueCacheNoopWithoutRedis(t *testing.T) {
	mw := NewCatalogueCache(config.CatalogueCache{Enabled: true}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/courses", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error { return c.String(http.StatusOK, "fresh") })
	require.NoError(t, handler(c))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestSignupThrottleNoopWithoutRedis(t *testing.T) {
	mw := NewSignupThrottle(config.SignupBurst{Enabled: true, Burst: 1}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/signups", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
