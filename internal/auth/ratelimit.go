package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another attempt for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter counts attempts per key in fixed windows stored in Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed fixed window limiter.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "wellness:ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}, nil
}

// Allow fails closed when Redis is unreachable.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if key = strings.TrimSpace(key); key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false
	}
	return n <= int64(l.limit)
}

// MemoryLimiter is the single-instance limiter used when no Redis is configured.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
	now    func() time.Time
	// expired windows are dropped at most once per window
	nextSweep time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewMemoryLimiter creates an in-process fixed window limiter.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: window, counts: make(map[string]*windowCount), now: time.Now}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 || l.window <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counts[key]
	if !ok || now.Sub(c.start) >= l.window {
		l.sweep(now)
		l.counts[key] = &windowCount{start: now, n: 1}
		return true
	}
	c.n++
	return c.n <= l.limit
}

func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for k, c := range l.counts {
		if now.Sub(c.start) >= l.window {
			delete(l.counts, k)
		}
	}
	l.nextSweep = now.Add(l.window)
}
