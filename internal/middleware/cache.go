package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/zeorvi/restaurant-reservations/internal/config"
)

// Availability and turn responses are cached per restaurant for a few
// seconds.  Redis is never authoritative for table state: every
// booking-path mutation bumps the restaurant's cache generation, which
// changes the key of all its cached reads, and the short TTL bounds
// staleness for anything the service cannot observe.

// cachedResponse is the stored form of one response.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// responseRecorder tees the response body so a hit-worthy reply can be
// stored after the handler ran.  Oversized bodies are passed through
// uncached rather than truncated.
type responseRecorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	oversized bool
	limit     int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.oversized {
		if r.buf.Len()+len(b) > r.limit {
			r.oversized = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

func generationKey(prefix, restaurantID string) string {
	return prefix + ":gen:" + restaurantID
}

// responseKey scopes an entry to the restaurant, its current cache
// generation and the exact request (route plus query).
func responseKey(ctx context.Context, rdb *redis.Client, prefix string, c echo.Context) string {
	restaurantID := c.Param("id")
	gen, err := rdb.Get(ctx, generationKey(prefix, restaurantID)).Result()
	if err != nil {
		gen = "0"
	}
	sum := sha1.Sum([]byte(c.Request().Method + " " + c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%s:g%s:%x", prefix, restaurantID, gen, sum)
}

// NewRedisCache serves cached GET responses.  Headers and body are
// replayed exactly as the handler produced them; everything else passes
// through.  With no Redis client the middleware is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := responseKey(ctx, rdb, cfg.Prefix, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					for name, vals := range cached.Header {
						if strings.EqualFold(name, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(name, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(cached.Status)
					_, _ = c.Response().Write(cached.Body)
					return nil
				}
			}

			rec := &responseRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.oversized {
				return nil
			}
			entry := cachedResponse{
				Status: rec.status,
				Header: c.Response().Header().Clone(),
				Body:   rec.buf.Bytes(),
			}
			if raw, err := json.Marshal(entry); err == nil {
				// Detached context: the request may already be done.
				_ = rdb.SetEx(context.Background(), key, raw, cfg.TTL).Err()
			}
			return nil
		}
	}
}

// CacheInvalidator bumps a restaurant's cache generation so its cached
// availability and floor views miss on the next read.  A nil
// invalidator (no Redis) is safe to call.
type CacheInvalidator struct {
	prefix string
	rdb    *redis.Client
}

// NewCacheInvalidator returns nil when caching is off or Redis is
// absent; handlers treat that as "nothing to invalidate".
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) *CacheInvalidator {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &CacheInvalidator{prefix: cfg.Prefix, rdb: rdb}
}

// Invalidate marks every cached read of the restaurant stale.  Failures
// are logged only: the short TTL still bounds staleness.
func (i *CacheInvalidator) Invalidate(ctx context.Context, restaurantID string) {
	if i == nil || restaurantID == "" {
		return
	}
	if err := i.rdb.Incr(ctx, generationKey(i.prefix, restaurantID)).Err(); err != nil {
		log.Printf("cache: invalidate %s failed: %v", restaurantID, err)
	}
}
