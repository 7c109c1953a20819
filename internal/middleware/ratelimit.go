package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/serenify-journal/pkg/clientip"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 300
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
)

// RedisRateLimit is a fixed-window per-IP counter shared by every instance
// that points at the same Redis. It fails open when Redis is unreachable.
func RedisRateLimit(client *redis.Client, ips clientip.Resolver, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rateLimitKey := RateLimitKeyPrefix + ips.RealClientIP(r)

			n, err := client.Incr(ctx, rateLimitKey).Result()
			if err == nil && n == 1 {
				// First request in this window
				err = client.Expire(ctx, rateLimitKey, RateLimitWindow).Err()
			}
			if err != nil {
				logger.Warn("rate limit check skipped", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			count := int(n)
			if count > RateLimitMaxRequests {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(RateLimitWindow.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":%d}`, int(RateLimitWindow.Seconds()))))
				return
			}

			// Add rate limit headers
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(RateLimitMaxRequests-count))

			next.ServeHTTP(w, r)
		})
	}
}
