package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/carewell/patient-registry/config"
	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRateLimit  = 5                // 5 attempts
	defaultRateWindow = 15 * time.Minute // per 15 minutes
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimiter creates a fixed-window rate limiting middleware keyed by
// client IP and endpoint path. Fails open when Redis is unavailable so the
// limiter cannot become a denial-of-service vector itself.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit == 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window == 0 {
		cfg.Window = defaultRateWindow
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path

		key := fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)

		allowed, err := checkRateLimit(c.Request.Context(), key, cfg.Limit, cfg.Window)
		if err != nil {
			util.LogSecurityEvent(util.SecurityEvent{
				EventType: util.EventRateLimitExceeded,
				IP:        clientIP,
				Message:   fmt.Sprintf("Rate limit check failed: %v", err),
			})
			c.Next()
			return
		}

		if !allowed {
			util.LogRateLimitExceeded("", clientIP, endpoint)
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: fmt.Errorf("rate limit exceeded"),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// checkRateLimit increments the window counter and reports whether the
// request is still within the limit.
func checkRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return true, nil
	}

	pipe := rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incrCmd.Val() <= int64(limit), nil
}
