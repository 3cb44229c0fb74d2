package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/response"
)

// Counter is the fixed-window counter behind RateLimit. *database.Redis implements it.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// KeyFunc extracts the client identity for rate limiting. An empty result
// falls back to the client address.
type KeyFunc func(r *http.Request) string

// RateLimit returns a fixed-window rate limiting middleware. Counter errors
// let the request through.
func RateLimit(counter Counter, cfg RateLimitConfig, keyFunc KeyFunc, logger *slog.Logger) func(next http.Handler) http.Handler {
	const window = time.Minute

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ""
			if keyFunc != nil {
				clientID = keyFunc(r)
			}
			if clientID == "" {
				clientID = "ip:" + r.RemoteAddr
			}
			key := fmt.Sprintf("ratelimit:%s", clientID)

			count, err := counter.IncrWithExpire(r.Context(), key, window)
			if err != nil {
				logger.Warn("rate limit counter failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))

			if int(count) > limit+cfg.BurstSize {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.Error(w, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
