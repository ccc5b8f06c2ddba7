package middlewares

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	// MaxClients bounds the number of tracked client limiters.
	MaxClients int
	// IdleTTL drops a client's limiter after this long without requests.
	IdleTTL time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 20,
		Burst:             60,
		MaxClients:        10000,
		IdleTTL:           10 * time.Minute,
	}
}

// IngestRateLimiterConfig sizes the limiter for recorder telemetry.
func IngestRateLimiterConfig(requestsPerSecond float64, burst int) RateLimiterConfig {
	cfg := DefaultRateLimiterConfig()
	if requestsPerSecond > 0 {
		cfg.RequestsPerSecond = requestsPerSecond
	}
	if burst > 0 {
		cfg.Burst = burst
	}
	return cfg
}

// RateLimiterMiddleware applies a token bucket per client IP. Limiters live
// in an expirable LRU so idle clients are forgotten.
func RateLimiterMiddleware(logger *logger.Logger, config RateLimiterConfig) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](config.MaxClients, nil, config.IdleTTL)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		limiter, ok := limiters.Get(clientIP)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
			limiters.Add(clientIP, limiter)
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", config.Burst))

		reservation := limiter.Reserve()
		if !reservation.OK() {
			tooManyRequests(c, config, time.Second)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()

			logger.Warn("rate limit exceeded",
				zap.String("ip", clientIP),
				zap.String("path", c.Request.URL.Path),
			)
			tooManyRequests(c, config, delay)
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int(math.Max(0, limiter.Tokens()))))
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, config RateLimiterConfig, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))

	c.Header("X-RateLimit-Remaining", "0")
	c.Header("Retry-After", fmt.Sprintf("%d", seconds))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "rate_limit_exceeded",
		"message":     fmt.Sprintf("Rate limit exceeded. Maximum %.0f requests per second.", config.RequestsPerSecond),
		"retry_after": seconds,
	})
	c.Abort()
}
