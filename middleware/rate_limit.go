package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

var (
	limiters   = map[string]*rateLimiter{}
	limitersMu sync.Mutex
)

// RateLimit applies a per-IP token bucket. Each scope (e.g. "auth", "posts") has its own buckets.
func RateLimit(scope string) gin.HandlerFunc {
	perMinute := max(config.Get().RateLimitPerMinute, 1)
	r := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/2, 1)

	return func(ctx *gin.Context) {
		limiter := getLimiter(scope+"|"+ctx.ClientIP(), r, burst)
		if !limiter.Allow() {
			ctx.Header("Retry-After", "60")
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}

func getLimiter(key string, limit rate.Limit, burst int) *rate.Limiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	cleanupExpiredLimitersLocked()

	if entry, ok := limiters[key]; ok {
		entry.expires = time.Now().Add(5 * time.Minute)
		return entry.limiter
	}

	entry := &rateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		expires: time.Now().Add(5 * time.Minute),
	}
	limiters[key] = entry
	return entry.limiter
}

func cleanupExpiredLimitersLocked() {
	now := time.Now()
	for key, entry := range limiters {
		if now.After(entry.expires) {
			delete(limiters, key)
		}
	}
}
