package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lightning-gateway/internal/auth"
	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/interfaces/http/response"
	"lightning-gateway/pkg/logger"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	ClientIDKey         = "clientId"
)

// BearerAuthMiddleware requires a valid client bearer token on every
// route it's applied to; /auth/token, /webhooks/*, and /health stay
// unauthenticated because it is never mounted on them.
func BearerAuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthorizationHeader)
		if !strings.HasPrefix(header, BearerPrefix) {
			response.Error(c, domainerrors.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, BearerPrefix)

		client, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ClientIDKey, client.ID)

		// Also set in Go Context so logger.WithContext picks it up,
		// the same way RequestIDMiddleware threads request_id through.
		ctx := logger.WithClientID(c.Request.Context(), client.ID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetClientID returns the authenticated client id set by
// BearerAuthMiddleware.
func GetClientID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ClientIDKey)
	if !exists {
		return uuid.Nil, false
	}
	return v.(uuid.UUID), true
}
