package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// TokenBucket is an in-memory per-key rate limiter. It is safe for
// concurrent use. Stale buckets are automatically cleaned up.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	capacity int
	stop     chan struct{}
}

type bucket struct {
	limiter *rate.Limiter
	last    time.Time
}

// NewTokenBucket creates a rate limiter that allows up to capacity requests
// per key in a burst, refilling at ratePerSecond. It starts a background
// goroutine that periodically removes stale buckets; call Close to stop it.
func NewTokenBucket(ratePerSecond float64, capacity int) *TokenBucket {
	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		limit:    rate.Limit(ratePerSecond),
		capacity: capacity,
		stop:     make(chan struct{}),
	}
	go tb.cleanup()
	return tb
}

// Allow reports whether the given key is allowed to proceed. Each call
// consumes one token.
func (tb *TokenBucket) Allow(_ context.Context, key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(tb.limit, tb.capacity)}
		tb.buckets[key] = b
	}
	b.last = time.Now()
	return b.limiter.Allow()
}

// Close stops the cleanup goroutine.
func (tb *TokenBucket) Close() {
	close(tb.stop)
}

// cleanup removes buckets that haven't been accessed in 10 minutes.
func (tb *TokenBucket) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-tb.stop:
			return
		case <-ticker.C:
			tb.mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for key, b := range tb.buckets {
				if b.last.Before(cutoff) {
					delete(tb.buckets, key)
				}
			}
			tb.mu.Unlock()
		}
	}
}

// RedisLimiter is a sliding-window limiter shared by every server instance
// pointed at the same Redis. It fails open when Redis is unavailable.
type RedisLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

// NewRedisLimiter allows limit requests per key within window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: "ratelimit:auth:",
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) bool {
	now := time.Now()
	redisKey := rl.keyPrefix + key
	windowStart := now.Add(-rl.window)

	pipe := rl.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	count := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
	})
	pipe.Expire(ctx, redisKey, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "rate limiter unavailable, allowing request", "error", err)
		return true
	}

	return count.Val() < int64(rl.limit)
}
