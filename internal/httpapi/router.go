package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codesandbox/internal/config"
	"codesandbox/internal/execsvc"
)

// NewRouter assembles the gin engine exposing the execution service over
// HTTP: health check first, then the middleware chain, then the
// versioned API group.
func NewRouter(cfg *config.Config, svc *execsvc.Service) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, StandardResponse{Success: true, Data: gin.H{"status": "ok"}})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := NewIPRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	execHandler := NewExecutionHandler(svc, cfg.DefaultTimeout)
	streamHandler := NewStreamHandler(svc, cfg)

	v1 := r.Group("/v1")
	v1.Use(limiter.Middleware())
	if cfg.JWTSecret != "" {
		v1.Use(NewTokenAuth(cfg.JWTSecret).Middleware())
	}
	{
		v1.POST("/execute", execHandler.Execute)
		v1.GET("/execute/stream", streamHandler.Stream)
	}

	return r
}
