package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fileflow/fileflow/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimitConfig holds fixed-window rate limit settings.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// RateLimitMiddleware throttles requests per caller using a Redis-backed
// fixed window. Redis outages fail open: throttling is protection, not a
// correctness requirement.
type RateLimitMiddleware struct {
	config RateLimitConfig
	client *redis.Client
	logger *pkg.Logger
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware(config RateLimitConfig, client *redis.Client, logger *pkg.Logger) *RateLimitMiddleware {
	if config.Limit <= 0 {
		config.Limit = 300
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &RateLimitMiddleware{config: config, client: client, logger: logger}
}

// Limit enforces the configured window per authenticated user, falling back
// to the client IP for anonymous requests.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.Enabled || m.client == nil {
			c.Next()
			return
		}

		caller := c.ClientIP()
		if id, ok := UserID(c); ok {
			caller = id.Hex()
		}
		window := time.Now().Unix() / int64(m.config.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", caller, window)

		ctx := c.Request.Context()
		count, err := m.client.Incr(ctx, key).Result()
		if err != nil {
			m.logger.Warn("rate limit store unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			c.Next()
			return
		}
		if count == 1 {
			m.client.Expire(ctx, key, m.config.Window)
		}

		remaining := int64(m.config.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(m.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(m.config.Limit) {
			pkg.RateLimitResponse(c, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
