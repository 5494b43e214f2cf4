package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slidehub/ai-service/internal/middleware"
	"github.com/slidehub/ai-service/internal/modules/processing/analysis"
	"github.com/slidehub/ai-service/internal/modules/processing/deploy"
	"github.com/slidehub/ai-service/internal/modules/processing/notes"
	"github.com/slidehub/ai-service/internal/pkg/response"
)

const (
	apiPrefix = "/api/ai"

	generateRateLimit  = 30
	generateRateWindow = time.Minute
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"status":  "UP",
			"service": "ai-service",
			"storage": a.cfg.Storage.Driver,
			"redis":   a.redis != nil,
			"jobs":    a.sched.Jobs(),
		})
	})

	// Generation endpoints are rate limited per client IP and guarded against
	// duplicate in-flight requests (requires Redis).
	var limit []gin.HandlerFunc
	if a.redis != nil {
		limit = append(limit,
			middleware.RateLimit(a.redis.Raw(), generateRateLimit, generateRateWindow, a.logger.Named("RateLimit")),
			middleware.Idempotence(a.redis.Raw(), a.logger.Named("Idempotence")),
		)
	}

	api := r.Group(apiPrefix)
	notes.NewHandler(a.notes).RegisterRoutes(api, limit...)
	analysis.NewHandler(a.analysis).RegisterRoutes(api, limit...)
	deploy.NewHandler(a.deploy).RegisterRoutes(api, limit...)
}
