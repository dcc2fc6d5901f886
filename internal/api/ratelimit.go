package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimitWindow is the fixed accounting window for ingress limiting.
const rateLimitWindow = time.Minute

// RateLimiter provides Redis-backed fixed-window rate limiting for the
// analysis ingress.
type RateLimiter struct {
	redis             *redis.Client
	logger            *zap.Logger
	requestsPerWindow int
}

// NewRateLimiter creates a rate limiter allowing requestsPerWindow requests
// per client per minute.
func NewRateLimiter(client *redis.Client, requestsPerWindow int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:             client,
		logger:            logger,
		requestsPerWindow: requestsPerWindow,
	}
}

// Allow reports whether the client identified by key may proceed. A store
// outage fails open: limiting is an ingress guard, not a dependency the
// analysis path is allowed to die on.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:analyze:%s", key)

	count, err := rl.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.logger.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, redisKey, rateLimitWindow).Err(); err != nil {
			rl.logger.Warn("rate limit window expire failed", zap.Error(err))
		}
	}

	return count <= int64(rl.requestsPerWindow)
}

// Middleware enforces the limit per remote address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.Context(), r.RemoteAddr) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
