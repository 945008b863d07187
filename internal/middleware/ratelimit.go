package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avorland/course-registration/internal/config"
)

// passthrough is the no-op middleware used when Redis is unavailable.
// The signup window must not depend on Redis being up.
func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// throttleScript implements a token bucket in a Redis hash: 't' holds
// the remaining tokens, 's' the timestamp of the last refill in
// milliseconds.  ARGV: now_ms, burst, interval_ms, ttl_s.  It returns
// {allowed, remaining}.  Running it as one script keeps the
// read-refill-spend sequence atomic across server instances.
var throttleScript = redis.NewScript(`
	local tokens = tonumber(redis.call('HGET', KEYS[1], 't') or ARGV[2])
	local stamp = tonumber(redis.call('HGET', KEYS[1], 's') or ARGV[1])
	local refill = math.floor((ARGV[1] - stamp) / ARGV[3])
	if refill > 0 then
		tokens = math.min(tonumber(ARGV[2]), tokens + refill)
		stamp = stamp + refill * ARGV[3]
	end
	local allowed = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	end
	redis.call('HSET', KEYS[1], 't', tokens, 's', stamp)
	redis.call('EXPIRE', KEYS[1], ARGV[4])
	return { allowed, tokens }
`)

// throttleKey scopes the bucket to the caller and route.  JWTAuth runs
// before the throttle on every registration route, so the nethz claim
// is normally present; the client address covers anything else.
func throttleKey(c echo.Context) string {
	caller, _ := c.Get("nethz").(string)
	if caller == "" {
		caller = c.RealIP()
	}
	return "throttle:" + caller + ":" + c.Request().Method + ":" + c.Path()
}

// NewSignupThrottle rate limits registration writes with a token
// bucket per caller and route.  When Redis errors mid-request the
// request passes through: losing the throttle is cheaper than losing
// signups.
func NewSignupThrottle(cfg config.SignupBurst, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	retryAfter := strconv.Itoa(int((cfg.Interval + time.Second - 1) / time.Second))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			vals, err := throttleScript.Run(ctx, rdb, []string{throttleKey(c)},
				time.Now().UnixMilli(),
				cfg.Burst,
				cfg.Interval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(vals) != 2 {
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
			if vals[0] != 1 {
				c.Response().Header().Set("Retry-After", retryAfter)
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
