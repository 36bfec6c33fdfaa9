package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dexgate/dexgate/internal/config"
)

// RateLimitMiddleware enforces a per-client token bucket, keyed by API key
// when present, otherwise by client IP.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	rps := cfg.Auth.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Auth.RateLimitBurst
	if burst <= 0 {
		burst = rps * 2
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[key] = limiter
		}
		return limiter
	}

	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiterFor(key).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
