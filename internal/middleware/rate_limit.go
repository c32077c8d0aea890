// internal/middleware/rate_limit.go
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/metrics"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/response"

	"go.uber.org/zap"
)

// Counter is the slice of the redis cache the limiter needs.
type Counter interface {
	IncrWithExpire(ctx context.Context, namespace, key string, window time.Duration) (int64, error)
	GetTTL(ctx context.Context, namespace, key string) (time.Duration, error)
}

// RateLimiter counts requests per user (or per IP before auth) in fixed windows.
// A nil counter disables limiting; counter errors let traffic through.
func RateLimiter(counter Counter, limit int, window time.Duration, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientKey(r)
			namespace := "ratelimit:" + scope

			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			defer cancel()
			count, err := counter.IncrWithExpire(ctx, namespace, clientID, window)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("scope", scope),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > int64(limit) {
				metrics.RateLimited.WithLabelValues(scope).Inc()
				wait := window
				if ttl, err := counter.GetTTL(ctx, namespace, clientID); err == nil && ttl > 0 {
					wait = ttl.Round(time.Second)
				}
				if wait < time.Second {
					wait = time.Second
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests. Try again in "+wait.String(), nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok {
		return "uid:" + userID
	}
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}
	return "ip:" + strings.TrimSpace(strings.Split(ip, ",")[0])
}
