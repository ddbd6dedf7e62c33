package server

import (
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerIdempotencyKey = "X-Idempotency-Key"
	headerCorrelationID  = "X-Correlation-ID"
)

// APIKeyRequired authenticates requests with a static API key. Disabled
// deployments pass every request through.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.APIKeyEnabled {
			c.Next()
			return
		}

		supplied := strings.TrimSpace(c.GetHeader(s.cfg.APIKeyHeader))
		if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(s.cfg.APIKey)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

// RateLimit applies a per-client token bucket backed by redis. Without a
// redis connection the limiter is absent and requests pass through; a redis
// error fails open so a degraded cache never blocks submissions.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.RateLimitEnabled || s.limiter == nil {
			c.Next()
			return
		}

		endpoint := c.FullPath()
		key := fmt.Sprintf("fnol:ratelimit:%s:%s", endpoint, c.ClientIP())
		rate := float64(s.cfg.RateLimitPerMinute) / 60.0

		result, err := s.limiter.Allow(c.Request.Context(), key, rate, s.cfg.RateLimitBurst)
		if err != nil {
			s.log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

		if !result.Allowed {
			if s.metrics != nil {
				s.metrics.RecordRateLimitDenied(c.Request.Context(), endpoint, "bucket_empty")
			}
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter/time.Second)))
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		if s.metrics != nil {
			s.metrics.RecordRateLimitAllowed(c.Request.Context(), endpoint)
		}
		c.Next()
	}
}
