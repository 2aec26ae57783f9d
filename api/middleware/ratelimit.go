package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quicktools/file-processor/internal/metrics"
	"github.com/quicktools/file-processor/internal/ratelimit"
)

// RateLimit gates job submissions per client IP using a sliding window.
// Rejected requests receive 429 with the window reset time.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.ClientIP()

		if !limiter.Allow(id) {
			reset := limiter.ResetTime(id)
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
			metrics.ObserveRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"resetAt": reset,
			})
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(id)))
		c.Next()
	}
}
