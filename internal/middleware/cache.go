package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avorland/course-registration/internal/config"
)

// cachedResponse is the envelope stored in Redis for one catalogue
// response.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// catalogueKey hashes the request path and query.  The catalogue
// routes are public and identical for every caller, so nothing about
// the caller goes into the key.
func catalogueKey(c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return "catalogue:" + hex.EncodeToString(sum[:])
}

// bodyRecorder copies the response body while forwarding it to the
// client.  A body that outgrows the limit marks the response as
// uncacheable instead of storing a truncated copy.
type bodyRecorder struct {
	http.ResponseWriter
	status  int
	body    bytes.Buffer
	limit   int
	spilled bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.spilled {
		if r.body.Len()+len(b) > r.limit {
			r.spilled = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// NewCatalogueCache caches successful GET responses of the public
// lecture and course listings in Redis for cfg.TTL.  Anything but a
// 200, and bodies above cfg.MaxBodyBytes, pass through uncached.
func NewCatalogueCache(cfg config.CatalogueCache, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := catalogueKey(c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
			}

			rec := &bodyRecorder{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          cfg.MaxBodyBytes,
			}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.spilled {
				return nil
			}
			raw, err := json.Marshal(cachedResponse{
				Status:      rec.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.body.Bytes(),
			})
			if err == nil {
				_ = rdb.Set(ctx, key, raw, cfg.TTL).Err()
			}
			return nil
		}
	}
}
