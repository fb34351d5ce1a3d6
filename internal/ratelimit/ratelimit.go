// Package ratelimit bounds how often one submitter can hit the submission
// endpoints. It is an abuse guard, not a correctness mechanism: the claim and
// payment state machines stay safe without it.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"charter/pkg/requestcontext"
)

// Backend counts hits per key within a fixed window.
type Backend interface {
	// Incr bumps the key's window counter and returns the new count.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter applies a fixed-window limit per key.
type Limiter struct {
	backend Backend
	window  time.Duration
	limit   int
}

func New(backend Backend, window time.Duration, limit int) *Limiter {
	return &Limiter{backend: backend, window: window, limit: limit}
}

// Allow reports whether the key may proceed. Backend failures fail open: the
// limiter never blocks legitimate traffic because Redis is down.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.backend == nil {
		return true, nil
	}
	count, err := l.backend.Incr(ctx, key, l.window)
	if err != nil {
		return true, err
	}
	return count <= int64(l.limit), nil
}

// RedisBackend implements the fixed window with INCR + EXPIRE.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "charter:rl:"}
}

func (b *RedisBackend) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := b.prefix + key
	count, err := b.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := b.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return count, fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	return count, nil
}

// Middleware rejects requests over the per-actor limit with 429.
func Middleware(limiter *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if actor.IsZero() {
				next.ServeHTTP(w, r)
				return
			}
			ok, err := limiter.Allow(ctx, actor.AccountID.String())
			if err != nil {
				logger.WarnContext(ctx, "rate limit check failed, allowing request",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
