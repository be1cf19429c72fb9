package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// limiter is one caller's token bucket. take refills lazily from the
// elapsed time, then either spends a token or reports how many whole
// seconds until one is available.
type limiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func newLimiter(cfg RateLimitConfig, now time.Time) *limiter {
	return &limiter{
		rate:   cfg.RequestsPerSecond,
		burst:  float64(cfg.BurstSize),
		tokens: float64(cfg.BurstSize),
		last:   now,
	}
}

func (l *limiter) take(now time.Time) (allowed bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens = math.Min(l.burst, l.tokens+now.Sub(l.last).Seconds()*l.rate)
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, 1
	}
	return false, int(math.Ceil((1 - l.tokens) / l.rate))
}

// limiterPool lazily creates one limiter per key.
type limiterPool struct {
	mu    sync.Mutex
	cfg   RateLimitConfig
	byKey map[string]*limiter
}

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	return &limiterPool{cfg: cfg, byKey: make(map[string]*limiter)}
}

func (p *limiterPool) get(key string, now time.Time) *limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.byKey[key]
	if !ok {
		l = newLimiter(p.cfg, now)
		p.byKey[key] = l
	}
	return l
}

// RateLimit returns middleware enforcing a per-caller token bucket.
// Callers are keyed on the authenticated subject when present, falling
// back to the client IP for unauthenticated paths.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	pool := newLimiterPool(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if sub, ok := c.Get("auth_subject").(string); ok && sub != "" {
				key = sub + ":" + key
			}

			now := time.Now()
			allowed, retryAfter := pool.get(key, now).take(now)
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
