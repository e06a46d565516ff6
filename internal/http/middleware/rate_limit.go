package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pierdell/mediaforge-backend/internal/platform/apierr"
)

// Limiter is the rate-limit backend contract: Allow reports whether key
// has budget left in the current window, and the window's remaining
// seconds for Retry-After (spec.md §6 429 handling).
type Limiter interface {
	Allow(key string, limit int) (allowed bool, retryAfter time.Duration)
}

// RedisLimiter is a fixed-window counter keyed by "ratelimit:{key}:{window}",
// the simplest scheme that still behaves correctly across API replicas
// (spec.md §9 "if horizontally scaled, front with a pub/sub bus" applies
// the same reasoning to rate limiting: shared state must live in Redis,
// not in-process).
type RedisLimiter struct {
	rdb    *goredis.Client
	window time.Duration
}

func NewRedisLimiter(rdb *goredis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: time.Minute}
}

func (l *RedisLimiter) Allow(key string, limit int) (bool, time.Duration) {
	now := time.Now()
	windowStart := now.Truncate(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())
	retryAfter := l.window - now.Sub(windowStart)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		// Fail open: a Redis outage must not take the whole API down.
		return true, 0
	}
	if count == 1 {
		l.rdb.Expire(ctx, redisKey, l.window)
	}
	if int(count) > limit {
		return false, retryAfter
	}
	return true, 0
}

// MemoryLimiter is the no-Redis fallback: one in-process fixed-window
// counter per key, adequate for a single-replica dev deployment.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	counts  map[string]int
	resetAt map[string]time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		window:  time.Minute,
		counts:  map[string]int{},
		resetAt: map[string]time.Time{},
	}
}

func (l *MemoryLimiter) Allow(key string, limit int) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if reset, ok := l.resetAt[key]; !ok || now.After(reset) {
		l.counts[key] = 0
		l.resetAt[key] = now.Add(l.window)
	}
	l.counts[key]++
	if l.counts[key] > limit {
		return false, l.resetAt[key].Sub(now)
	}
	return true, 0
}

// RateLimit gates every request by the authenticated user id (falling
// back to remote addr pre-auth), rejecting with 429 + Retry-After once
// perMinute is exceeded (spec.md §6 "429").
func RateLimit(limiter Limiter, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if userID, ok := RequestUserID(c); ok {
			key = userID.String()
		}
		allowed, retryAfter := limiter.Allow(key, perMinute)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			apiErr := apierr.New(http.StatusTooManyRequests, "rate_limited", fmt.Errorf("rate limit exceeded"))
			c.AbortWithStatusJSON(apiErr.Status, apierr.Body{Detail: apiErr.Error()})
			return
		}
		c.Next()
	}
}
