package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	Name        string        // Key namespace, so login and API limits count separately
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Time window (e.g., 1 minute)
}

// RateLimiter provides IP-based rate limiting using Redis
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RateLimiter {
	if config.Name == "" {
		config.Name = "api"
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, retryAfter, err := rl.CheckLimit(c.Request.Context(), clientIP)
		if err != nil {
			// Fail open: a redis outage must not take the API down
			logger.Log.Warn("Rate limit check failed",
				zap.String("limiter", rl.config.Name),
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"retry_after": int(retryAfter.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CheckLimit counts requests per IP in a fixed window.
// Returns: (allowed bool, retryAfter duration, error)
func (rl *RateLimiter) CheckLimit(ctx context.Context, ip string) (bool, time.Duration, error) {
	key := fmt.Sprintf("wastetrack:ratelimit:%s:%s", rl.config.Name, ip)

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	// Set expiry on first request (count = 1)
	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count > int64(rl.config.MaxRequests) {
		ttl, err := rl.redis.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = rl.config.Window
		}
		return false, ttl, nil
	}

	return true, 0, nil
}
