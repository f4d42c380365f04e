package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/semlayer/semlayer/core/infrastructure/logging"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

const rateLimitKeyPrefix = "semlayer:ratelimit:"

// RateLimiter decides whether another request fits in the window
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter is a sliding-window log kept in a sorted set per key
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRateLimiter creates a Redis-backed rate limiter
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, now: time.Now}
}

// Allow records the request when it fits in the window
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	windowStart := now.Add(-window)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if count.Val() >= int64(limit) {
		return false, nil
	}

	pipe = r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	return err == nil, err
}

// RateLimit rejects requests over limit per window. Limiter errors fail open.
func RateLimit(limiter RateLimiter, limit int, window time.Duration, keyFunc func(*http.Request) string, onError func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	log := logging.New("ratelimit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), rateLimitKeyPrefix+key, limit, window)
			if err != nil {
				log.WithContext(r.Context()).Warnf("Rate limiter unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				rateLimitedTotal.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				onError(w, apperrors.NewAppError(apperrors.ErrCodeRateLimited, "Rate limit exceeded", nil))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey keys the limit by session user, falling back to the client IP
func ClientKey(r *http.Request) string {
	if user, ok := UserFromContext(r.Context()); ok && user.UserUUID != "" {
		return "user:" + user.UserUUID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
