package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/pkg/metrics"
	"github.com/insightboard/core/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimitWindow   = time.Second
	rateLimitIdleTTL  = 10 * time.Minute
	rateLimitKeyspace = "insight:rate_limit"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Name() string
}

// Counter increments a windowed counter and returns the new count.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// WindowLimiter allows max requests per key in each fixed one-second
// window, counted in a shared store.
type WindowLimiter struct {
	counter Counter
	max     int64
	now     func() time.Time
}

func NewWindowLimiter(counter Counter, perSecond float64, burst int) *WindowLimiter {
	n := int64(math.Ceil(perSecond))
	if int64(burst) > n {
		n = int64(burst)
	}
	return &WindowLimiter{counter: counter, max: n, now: time.Now}
}

func (l *WindowLimiter) Name() string { return "redis" }

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("%s:%s:%d", rateLimitKeyspace, key, l.now().Unix())
	count, err := l.counter.Incr(ctx, windowKey, rateLimitWindow+time.Second)
	if err != nil {
		return true, err
	}
	return count <= l.max, nil
}

// TokenLimiter keeps one token bucket per key in process memory.
type TokenLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewTokenLimiter(perSecond float64, burst int) *TokenLimiter {
	return &TokenLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *TokenLimiter) Name() string { return "memory" }

func (l *TokenLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.evict(now)
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// evict drops buckets idle for longer than rateLimitIdleTTL. mu must be held.
func (l *TokenLimiter) evict(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > rateLimitIdleTTL {
			delete(l.buckets, k)
		}
	}
}

// RateLimit rejects clients that exceed limiter with 429. Authenticated
// requests are not limited. A limiter error lets the request through.
func RateLimit(limiter Limiter, log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ok, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("backend", limiter.Name()), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			m.RecordRateLimited(limiter.Name())
			c.Header("Retry-After", strconv.Itoa(int(rateLimitWindow/time.Second)))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}
