package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thirdhand/marketplace/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Limiter counts requests per key in fixed windows. The Redis limiter in
// the cache package shares counters between instances.
type Limiter interface {
	// Allow consumes one request for key and reports whether it may
	// proceed together with the requests left in the current window
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
	Window() time.Duration
}

// RateLimiter is the in-memory fixed window Limiter
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	window  time.Duration
	done    chan struct{}
	once    sync.Once
}

type client struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a new rate limiter. Close stops its sweeper.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
		done:    make(chan struct{}),
	}
	go rl.cleanup(window * 2)
	return rl
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, c := range rl.clients {
				if now.Sub(c.lastReset) > rl.window*2 {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the background sweeper
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// Limit returns the requests allowed per window
func (rl *RateLimiter) Limit() int { return rl.limit }

// Window returns the window length
func (rl *RateLimiter) Window() time.Duration { return rl.window }

// Allow implements Limiter. It never fails.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, exists := rl.clients[key]
	if !exists || now.Sub(c.lastReset) >= rl.window {
		rl.clients[key] = &client{tokens: rl.limit - 1, lastReset: now}
		return true, rl.limit - 1, nil
	}

	if c.tokens > 0 {
		c.tokens--
		return true, c.tokens, nil
	}
	return false, 0, nil
}

// Remaining returns the number of remaining requests for the given key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, exists := rl.clients[key]
	if !exists || time.Since(c.lastReset) >= rl.window {
		return rl.limit
	}
	return c.tokens
}

// ClientKey limits authenticated callers by user id and everyone else by
// client IP
func ClientKey(c *gin.Context) string {
	if userID := GetJWTUserID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// IPKey limits by client IP only
func IPKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// RateLimitConfig configures RateLimitWithConfig
type RateLimitConfig struct {
	Limiter Limiter
	KeyFunc func(*gin.Context) string
	// Prefix separates counters of limiters sharing a store
	Prefix  string
	Code    string
	Message string
	Logger  *zap.Logger
}

// RateLimit limits each client with the default 429 response
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return RateLimitWithConfig(RateLimitConfig{Limiter: limiter, KeyFunc: ClientKey, Logger: log})
}

// AuthRateLimit is the stricter per IP limit of the credential endpoints
func AuthRateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter: limiter,
		KeyFunc: IPKey,
		Prefix:  "auth:",
		Message: "Too many authentication attempts. Please try again later.",
		Logger:  log,
	})
}

// RateLimitWithConfig returns a rate limiting middleware. A failing store
// lets the request through.
func RateLimitWithConfig(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientKey
	}
	if cfg.Code == "" {
		cfg.Code = dto.ErrCodeRateLimited
	}
	if cfg.Message == "" {
		cfg.Message = "Too many requests. Please try again later."
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Limiter.Limit())
	retryAfter := strconv.Itoa(int(cfg.Limiter.Window().Seconds()))

	return func(c *gin.Context) {
		key := cfg.Prefix + cfg.KeyFunc(c)
		allowed, remaining, err := cfg.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			cfg.Logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				cfg.Code, cfg.Message, c.GetString(RequestIDKey),
			))
			return
		}
		c.Next()
	}
}
