package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/interfaces/http/response"
	"lightning-gateway/internal/webhook"
)

const providerSignatureHeader = "Provider-Sig"

// WebhookHandler accepts inbound provider payment notifications.
type WebhookHandler struct {
	ingress *webhook.Ingress
}

func NewWebhookHandler(ingress *webhook.Ingress) *WebhookHandler {
	return &WebhookHandler{ingress: ingress}
}

// HandleProviderWebhook verifies and applies an inbound provider
// notification.
// POST /api/v1/webhooks/provider
func (h *WebhookHandler) HandleProviderWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, domainerrors.BadRequest("unable to read request body"))
		return
	}

	verdict, err := h.ingress.Handle(c.Request.Context(), body, c.GetHeader(providerSignatureHeader))
	if err != nil {
		if err == webhook.ErrBadSignature {
			response.Error(c, domainerrors.Unauthorized("signature verification failed"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": string(verdict)})
}
