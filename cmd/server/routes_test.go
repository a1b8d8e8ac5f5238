package main

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"lightning-gateway/internal/interfaces/http/handlers"
	"lightning-gateway/pkg/redis"
)

func noopMiddleware(c *gin.Context) { c.Next() }

func TestRegisterAPIV1Routes_RegistersKeyRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	registerAPIV1Routes(r, routeDeps{
		authHandler:    &handlers.AuthHandler{},
		paymentHandler: &handlers.PaymentHandler{},
		webhookHandler: &handlers.WebhookHandler{},
		streamHandler:  &handlers.StreamHandler{},
		bearerAuth:     noopMiddleware,
		paymentLimiter: noopMiddleware,
	})

	routes := r.Routes()
	expects := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/auth/token"},
		{"POST", "/api/v1/payments"},
		{"GET", "/api/v1/payments/:id"},
		{"POST", "/api/v1/payments/:id/cancel"},
		{"GET", "/api/v1/events/stream"},
		{"POST", "/api/v1/webhooks/provider"},
	}

	for _, exp := range expects {
		found := false
		for _, route := range routes {
			if route.Method == exp.method && route.Path == exp.path {
				found = true
				break
			}
		}
		require.Truef(t, found, "route %s %s not registered", exp.method, exp.path)
	}
}

func TestRegisterAPIV1Routes_RouteResponds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	registerHealthRoute(r, db)
	registerAPIV1Routes(r, routeDeps{
		authHandler:    &handlers.AuthHandler{},
		paymentHandler: &handlers.PaymentHandler{},
		webhookHandler: &handlers.WebhookHandler{},
		streamHandler:  &handlers.StreamHandler{},
		bearerAuth:     noopMiddleware,
		paymentLimiter: noopMiddleware,
	})

	// Smoke: unrelated helper route still works after route registration.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.NotEqual(t, http.StatusNotFound, rec.Code)
}
