package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/infrastructure/auth"
	"github.com/thirdhand/marketplace/internal/interfaces/http/dto"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)
		defer limiter.Close()

		for i := 0; i < 3; i++ {
			allowed, remaining, err := limiter.Allow(ctx, "client")
			assert.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
			assert.Equal(t, 2-i, remaining)
		}
		allowed, _, _ := limiter.Allow(ctx, "client")
		assert.False(t, allowed)
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		defer limiter.Close()

		allowed, _, _ := limiter.Allow(ctx, "a")
		assert.True(t, allowed)
		allowed, _, _ = limiter.Allow(ctx, "a")
		assert.False(t, allowed)
		allowed, _, _ = limiter.Allow(ctx, "b")
		assert.True(t, allowed)
	})

	t.Run("resets after window", func(t *testing.T) {
		limiter := NewRateLimiter(1, 50*time.Millisecond)
		defer limiter.Close()

		allowed, _, _ := limiter.Allow(ctx, "c")
		assert.True(t, allowed)
		allowed, _, _ = limiter.Allow(ctx, "c")
		assert.False(t, allowed)

		time.Sleep(60 * time.Millisecond)
		allowed, _, _ = limiter.Allow(ctx, "c")
		assert.True(t, allowed)
		assert.Equal(t, 0, limiter.Remaining("c"))
		assert.Equal(t, 1, limiter.Remaining("unknown"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		defer limiter.Close()

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowedCount := 0
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if allowed, _, _ := limiter.Allow(ctx, "shared"); allowed {
					mu.Lock()
					allowedCount++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, allowedCount)
	})
}

func get(router *gin.Engine, path, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Close()

	router := gin.New()
	router.Use(RateLimit(limiter, nil))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := get(router, "/test", "10.0.0.1:1000", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, get(router, "/test", "10.0.0.1:1000", nil).Code)

	w = get(router, "/test", "10.0.0.1:1000", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, dto.ErrCodeRateLimited, decodeError(t, w).Code)

	assert.Equal(t, http.StatusOK, get(router, "/test", "10.0.0.2:1000", nil).Code)
}

func TestRateLimit_KeysAuthenticatedUsersByID(t *testing.T) {
	jwtService := newTestJWTService()
	tokenA, _ := issueToken(t, jwtService, identity.RoleBuyer)
	tokenB, _ := issueToken(t, jwtService, identity.RoleBuyer)

	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Close()

	router := gin.New()
	router.Use(OptionalJWTAuth(validatorFor(jwtService, auth.NewInMemoryTokenBlacklist()), nil))
	router.Use(RateLimit(limiter, nil))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	bearer := func(token string) http.Header {
		return http.Header{AuthHeaderKey: []string{BearerPrefix + token}}
	}

	// same IP, different accounts
	assert.Equal(t, http.StatusOK, get(router, "/test", "10.0.0.1:1", bearer(tokenA)).Code)
	assert.Equal(t, http.StatusOK, get(router, "/test", "10.0.0.1:1", bearer(tokenB)).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/test", "10.0.0.1:1", bearer(tokenA)).Code)
	assert.Equal(t, http.StatusOK, get(router, "/test", "10.0.0.1:1", nil).Code)
}

func TestAuthRateLimit_IsolatedFromGlobalLimit(t *testing.T) {
	shared := NewRateLimiter(2, time.Minute)
	defer shared.Close()

	router := gin.New()
	router.GET("/auth/login", AuthRateLimit(shared, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/data", RateLimit(shared, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(router, "/auth/login", "10.0.0.9:1", nil).Code)
	assert.Equal(t, http.StatusOK, get(router, "/auth/login", "10.0.0.9:1", nil).Code)

	w := get(router, "/auth/login", "10.0.0.9:1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many authentication attempts. Please try again later.", decodeError(t, w).Message)

	assert.Equal(t, http.StatusOK, get(router, "/api/data", "10.0.0.9:1", nil).Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, int, error) {
	return false, 0, errors.New("redis down")
}
func (failingLimiter) Limit() int            { return 1 }
func (failingLimiter) Window() time.Duration { return time.Minute }

func TestRateLimit_StoreFailureLetsRequestThrough(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(failingLimiter{}, nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(router, "/test", "10.0.0.1:1", nil).Code)
}
