package main

import (
	"github.com/gin-gonic/gin"

	"lightning-gateway/internal/interfaces/http/handlers"
)

type routeDeps struct {
	authHandler    *handlers.AuthHandler
	paymentHandler *handlers.PaymentHandler
	webhookHandler *handlers.WebhookHandler
	streamHandler  *handlers.StreamHandler
	bearerAuth     gin.HandlerFunc
	paymentLimiter gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/token", d.authHandler.IssueToken)
		}

		payments := v1.Group("/payments")
		payments.Use(d.bearerAuth)
		{
			payments.POST("", d.paymentLimiter, d.paymentHandler.CreatePayment)
			payments.GET("/:id", d.paymentHandler.GetPayment)
			payments.POST("/:id/cancel", d.paymentHandler.CancelPayment)
		}

		events := v1.Group("/events")
		events.Use(d.bearerAuth)
		{
			events.GET("/stream", d.streamHandler.Stream)
		}

		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/provider", d.webhookHandler.HandleProviderWebhook)
		}
	}
}
