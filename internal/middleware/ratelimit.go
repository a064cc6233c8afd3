package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/calmora/calmora-api/pkg/observability"
)

// Counter is the increment-with-expiry primitive backing distributed
// rate limiting. The cache package's RedisStore satisfies it.
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// RateLimit rejects requests beyond limit per window per client IP,
// counted in the shared cache backend. When the backend is unreachable
// it falls back to a local token bucket rather than admitting
// everything: the limiter protects the access-check path, which already
// fails open on its own cache.
func RateLimit(counter Counter, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	local := rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if counter == nil {
				if !local.Allow() {
					observability.RateLimitDrops.Inc()
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:access:%s", clientIP(r))
			count, ttl, err := counter.IncrWithExpiry(r.Context(), key, window)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limit backend unavailable, using local limiter",
					slog.Any("error", err))
				if !local.Allow() {
					observability.RateLimitDrops.Inc()
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				observability.RateLimitDrops.Inc()
				retryAfter := int(ttl.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
