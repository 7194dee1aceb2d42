package httpapi

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with middleware and every route registered.
func NewRouter(handlers *Handlers, metrics gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(handlers.logger))
	router.Use(RequestID())
	router.Use(Logger(handlers.logger, "/health", "/metrics"))

	router.GET("/health", handlers.Health())
	if metrics != nil {
		router.GET("/metrics", metrics)
	}
	RegisterRoutes(router, handlers)
	return router
}

// RegisterRoutes registers all order and dispenser routes.
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	orders := router.Group("/api/v1/orders")
	{
		orders.POST("", handlers.CreateOrder())
		orders.GET("/:id", handlers.GetOrder())
		orders.DELETE("/:id", handlers.DeleteOrder())
		orders.POST("/:id/lines", handlers.AddLine())
		orders.DELETE("/:id/lines/:lineId", handlers.RemoveLine())
		orders.POST("/:id/select", handlers.SelectLine())
		orders.POST("/:id/input", handlers.Input())
		orders.POST("/:id/dispatch", handlers.Dispatch())
	}

	sessions := router.Group("/api/v1/sessions")
	{
		sessions.GET("/:session/credits", handlers.Credits())
		sessions.POST("/:session/cancel", handlers.CancelCredits())
	}

	router.GET("/api/v1/probe", handlers.Probe())
}
