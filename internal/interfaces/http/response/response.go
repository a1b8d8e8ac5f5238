// Package response renders the uniform JSON envelope every handler uses.
package response

import (
	"github.com/gin-gonic/gin"

	domainerrors "lightning-gateway/internal/domain/errors"
)

// Success sends data as the JSON body with status.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error renders err as {"detail": "<message>"}, using err's AppError
// status/message if it is one, or collapsing to 500 internal error
// otherwise so stack traces and provider internals never leak.
func Error(c *gin.Context, err error) {
	appErr := domainerrors.As(err)
	c.JSON(appErr.Status, gin.H{"detail": appErr.Message})
}
