package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/avolkhin/shipstream/internal/pkg/signature"
	"github.com/avolkhin/shipstream/internal/server/http/handlers"
	"github.com/avolkhin/shipstream/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.FulfillmentFacade, verifier signature.Verifier, health handlers.HealthChecker, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	webhookHandler := handlers.NewWebhookHandler(facade, verifier, logger)
	fulfillmentHandler := handlers.NewFulfillmentHandler(facade)
	healthHandler := handlers.NewHealthHandler(health)

	webhooks := engine.Group("/webhooks")
	webhooks.POST("/storefront/order-paid", webhookHandler.OrderPaid)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Check)

	fulfillments := api.Group("/fulfillments")
	fulfillments.GET("", fulfillmentHandler.List)
	fulfillments.GET("/summary", fulfillmentHandler.Summary)
	fulfillments.GET("/:id", fulfillmentHandler.Get)
	fulfillments.GET("/:id/events", fulfillmentHandler.Events)
	fulfillments.POST("/:id/retry", fulfillmentHandler.Retry)
	fulfillments.POST("/:id/approve", fulfillmentHandler.Approve)
	fulfillments.POST("/:id/deliver", fulfillmentHandler.Deliver)
	fulfillments.POST("/:id/cancel", fulfillmentHandler.Cancel)
	fulfillments.POST("/:id/return", fulfillmentHandler.Return)

	return engine
}
