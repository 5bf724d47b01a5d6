package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/letsrace/digest/app/catalog"
	"github.com/letsrace/digest/app/runner"
	"github.com/letsrace/digest/app/subscriber"
	"github.com/letsrace/digest/app/tasks"
	"github.com/letsrace/digest/app/token"
)

// NewHandler creates the API handler with all its collaborators.
func NewHandler(subscribers *subscriber.Store, cat *catalog.Catalog, tokens *token.Issuer,
	r *runner.Runner, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		subscribers: subscribers,
		catalog:     cat,
		tokens:      tokens,
		runner:      r,
		scheduler:   scheduler,
		version:     version,
	}
}

// NewServer creates a new HTTP server with all routes configured. Admin
// endpoints are only registered when an admin token is set.
func NewServer(handler *Handler, adminToken string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware so the static website can call the subscription
	// endpoints cross-origin
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Admin-Token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, adminToken)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, adminToken string) {
	// Public subscription endpoints
	r.POST("/subscribe", handler.Subscribe)
	r.POST("/unsubscribe", handler.Unsubscribe)

	// Health and metrics endpoints
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Admin endpoints
	api := r.Group("/api/v1")
	api.Use(adminAuth(adminToken))
	{
		api.POST("/digest/preview", handler.PreviewDigest)
		api.POST("/digest/test", handler.SendTestDigest)
		api.POST("/digest/run", handler.RunDigest)
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "LetsRace Digest",
			"description": "Weekly cycling event digest emails for LetsRace.cc",
			"endpoints": map[string]string{
				"subscribe":   "/subscribe (POST)",
				"unsubscribe": "/unsubscribe (POST)",
				"health":      "/health",
				"metrics":     "/metrics",
				"preview":     "/api/v1/digest/preview (POST, admin)",
				"test":        "/api/v1/digest/test (POST, admin)",
				"run":         "/api/v1/digest/run (POST, admin)",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// adminAuth guards the admin endpoints with a shared token. An unset token
// rejects every request, keeping the endpoints disabled rather than open.
func adminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Token")
		if !token.ConstantTimeEquals(provided, adminToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized.",
			})
			return
		}
		c.Next()
	}
}

// ServerConfig holds server configuration options
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "",
		Port:         "8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
