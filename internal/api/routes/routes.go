// Package routes defines the HTTP routes of the n8n gateway.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/marketingops/n8n-gateway/internal/api/handlers"
	"github.com/marketingops/n8n-gateway/internal/api/middleware"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler     *handlers.HealthHandler
	FunctionsHandler  *handlers.FunctionsHandler
	WorkflowsHandler  *handlers.WorkflowsHandler
	ConnectionHandler *handlers.ConnectionHandler
	AuthMiddleware    *middleware.AuthMiddleware
	CORS              middleware.CORSConfig
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	// Health check routes (no auth required)
	r.GET("/health", cfg.HealthHandler.Health)
	r.GET("/ready", cfg.HealthHandler.Ready)
	r.GET("/live", cfg.HealthHandler.Live)

	// Edge-function compatible routes used by the dashboard
	functions := r.Group("/functions/v1")
	functions.Use(cfg.AuthMiddleware.Authenticate())
	{
		functions.POST("/n8n-proxy", cfg.FunctionsHandler.Proxy)
		functions.GET("/get-n8n-secrets", cfg.FunctionsHandler.Secrets)
		functions.GET("/debug-n8n-api", cfg.FunctionsHandler.Debug)
	}

	v1 := r.Group("/api/v1/n8n")
	v1.Use(cfg.AuthMiddleware.Authenticate())
	{
		workflows := v1.Group("/workflows")
		{
			workflows.GET("", cfg.WorkflowsHandler.List)
			workflows.POST("/:id/activate", cfg.WorkflowsHandler.Activate)
			workflows.POST("/:id/deactivate", cfg.WorkflowsHandler.Deactivate)
			workflows.DELETE("/:id", cfg.WorkflowsHandler.Delete)
			workflows.GET("/:id/url", cfg.WorkflowsHandler.URL)
		}

		v1.GET("/connection", cfg.ConnectionHandler.State)
		v1.POST("/connection/test", cfg.ConnectionHandler.Test)
		v1.PUT("/config", cfg.ConnectionHandler.SaveConfig)
	}
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware) {
	r.NoRoute(middleware.NotFound())

	r.Use(loggingMw.RequestLogger())
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())
	r.Use(middleware.NewCORSMiddleware(cfg.CORS))

	middleware.SetupCORSRoutes(r, cfg.CORS)
	Setup(r, cfg)
}
