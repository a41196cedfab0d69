package routes

import (
	"github.com/gin-gonic/gin"

	"waveshop/internal/interfaces/http/handlers"
)

// PaymentRouteConfig holds dependencies for payment routes.
type PaymentRouteConfig struct {
	PaymentHandler  *handlers.PaymentHandler
	TelegramHandler *handlers.TelegramHandler
}

// SetupPaymentRoutes configures payment and confirmation routes.
func SetupPaymentRoutes(engine *gin.Engine, cfg *PaymentRouteConfig) {
	payments := engine.Group("/payments")
	{
		payments.POST("", cfg.PaymentHandler.InitiatePayment)
		payments.POST("/callback/:gateway", cfg.PaymentHandler.HandleWebhook)
	}

	engine.POST("/telegram/webhook", cfg.TelegramHandler.HandleUpdate)
}
