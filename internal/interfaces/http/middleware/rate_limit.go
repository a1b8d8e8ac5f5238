package middleware

import (
	"github.com/gin-gonic/gin"

	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/interfaces/http/response"
	"lightning-gateway/internal/ratelimit"
)

// RateLimitByClientMiddleware rate-limits per authenticated client id;
// it must run after BearerAuthMiddleware.
func RateLimitByClientMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, ok := GetClientID(c)
		if !ok {
			c.Next()
			return
		}
		if !limiter.Allow(clientID.String()) {
			response.Error(c, domainerrors.RateLimited("rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimitByIPMiddleware rate-limits per source IP. No route mounts
// it; /auth/token is rate-limited per IP inside auth.Service instead.
func RateLimitByIPMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.Error(c, domainerrors.RateLimited("rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}
