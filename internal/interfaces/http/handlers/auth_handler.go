package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lightning-gateway/internal/auth"
	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/interfaces/http/response"
)

// AuthHandler handles bearer-token issuance for kiosk clients.
type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// IssueToken issues a bearer token for a kiosk client.
// POST /api/v1/auth/token
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var input entities.TokenRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	token, err := h.svc.IssueToken(c.Request.Context(), input, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, token)
}
