package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labassist/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/messages", handler.HandleMessage)
		v1.POST("/telegram/webhook", handler.TelegramWebhook)

		admin := v1.Group("", AdminAuthMiddleware(cfg.Server.AdminToken))
		{
			admin.GET("/escalations", handler.ListEscalations)
			admin.POST("/catalog/refresh", handler.RefreshCatalog)
		}
	}

	return router
}
