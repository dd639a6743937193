package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/session"
)

// cachedPage is what the page cache stores per key.
type cachedPage struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// pageRecorder tees the rendered page into a buffer.  It stops buffering
// once limit is exceeded; overflow marks the page as too large to keep.
type pageRecorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (pr *pageRecorder) WriteHeader(code int) {
	pr.status = code
	pr.ResponseWriter.WriteHeader(code)
}

func (pr *pageRecorder) Write(b []byte) (int, error) {
	if !pr.overflow {
		if pr.limit > 0 && pr.body.Len()+len(b) > pr.limit {
			pr.overflow = true
			pr.body.Reset()
		} else {
			pr.body.Write(b)
		}
	}
	return pr.ResponseWriter.Write(b)
}

// cacheable reports whether a rendered page may be shared with other
// visitors of the same variant.
func (pr *pageRecorder) cacheable(h http.Header) bool {
	return pr.status == http.StatusOK && !pr.overflow && h.Get(echo.HeaderSetCookie) == ""
}

// pageCacheKey varies by route, query and locale.  Only anonymous pages are
// cached, so the key carries no identity.
func pageCacheKey(cfg config.CacheConfig, c echo.Context) string {
	variant := strings.Join([]string{c.Path(), c.Request().URL.RawQuery, Lang(c)}, "\x00")
	sum := sha1.Sum([]byte(variant))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

func (p *cachedPage) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range p.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		h[k] = append([]string(nil), vals...)
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(p.Status)
	_, err := c.Response().Write(p.Body)
	return err
}

// NewPageCache caches rendered pages in Redis for anonymous visitors.  The
// layout shows the signed-in user's name, so requests with a user bypass the
// cache entirely.  Responses that set a cookie are never stored, and pages
// with pending flashes bypass the cache.
func NewPageCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] || CurrentUser(c) != nil || session.HasFlashes(Session(c)) {
				return next(c)
			}
			key := pageCacheKey(cfg, c)

			if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				var p cachedPage
				if json.Unmarshal(raw, &p) == nil && p.Status != 0 {
					return p.replay(c)
				}
			} else if err != redis.Nil {
				log.Warn("page cache read failed", zap.String("key", key), zap.Error(err))
			}

			rec := &pageRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}

			hdr := c.Response().Header().Clone()
			if !rec.cacheable(hdr) {
				return nil
			}
			hdr.Del("X-Cache")
			raw, err := json.Marshal(cachedPage{Status: rec.status, Header: hdr, Body: rec.body.Bytes()})
			if err != nil {
				return nil
			}
			// The request context may already be done once the body is flushed.
			if err := rdb.Set(context.Background(), key, raw, ttl).Err(); err != nil {
				log.Warn("page cache store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
