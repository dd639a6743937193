package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/view"
)

// takeToken keeps a bucket as a hash {t = tokens, at = last refill ms}.
// ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {granted (0|1), tokens left, ms until the next refill}.
var takeToken = redis.NewScript(`
local now, cap, refill, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local t = tonumber(redis.call('HGET', KEYS[1], 't') or '')
local at = tonumber(redis.call('HGET', KEYS[1], 'at') or '')
if not t or not at then
  t, at = cap, now
end
local steps = math.floor((now - at) / every)
if steps > 0 then
  t = math.min(cap, t + steps * refill)
  at = at + steps * every
end
local granted, wait = 0, 0
if t >= 1 then
  granted, t = 1, t - 1
else
  wait = math.max(0, at + every - now)
end
redis.call('HSET', KEYS[1], 't', t, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {granted, t, wait}
`)

type bucketVerdict struct {
	granted bool
	left    int64
	wait    time.Duration
}

type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b tokenBucket) take(ctx context.Context, key string, now time.Time) (bucketVerdict, error) {
	out, err := takeToken.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketVerdict{}, err
	}
	if len(out) != 3 {
		return bucketVerdict{}, redis.Nil
	}
	return bucketVerdict{granted: out[0] == 1, left: out[1], wait: time.Duration(out[2]) * time.Millisecond}, nil
}

// retryAfter rounds the wait up to whole seconds for the Retry-After header.
func (v bucketVerdict) retryAfter() string {
	secs := (v.wait + time.Second - 1) / time.Second
	return strconv.FormatInt(int64(secs), 10)
}

// NewTokenBucket limits requests per key with a Redis token bucket.  Without
// Redis, or on any Redis error, requests pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	bucket := tokenBucket{cfg: cfg, rdb: rdb}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			v, err := bucket.take(c.Request().Context(), key, time.Now())
			if err != nil {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.left, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.granted {
				return next(c)
			}

			h.Set("Retry-After", v.retryAfter())
			if cfg.Debug {
				log.Info("rate limited", zap.String("key", key), zap.Duration("wait", v.wait))
			}
			return c.HTML(http.StatusTooManyRequests,
				view.ErrorFragment(T(c, "Too many attempts. Please wait a moment and try again.")))
		}
	}
}

// buildRateKey joins the prefix with the parts named by the key strategy,
// e.g. "ip_route" gives "rl:ip:<addr>:route:<method path>".  Unknown
// strategies key on all three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	switch strategy {
	case "ip", "user", "route", "ip_user", "ip_route", "user_route":
	default:
		strategy = "ip_user_route"
	}

	parts := []string{cfg.Prefix}
	for _, dim := range strings.Split(strategy, "_") {
		switch dim {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, "ip", ip)
		case "user":
			parts = append(parts, "user", currentUserKey(c))
		case "route":
			parts = append(parts, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(parts, ":")
}
