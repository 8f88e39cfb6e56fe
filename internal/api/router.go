// Package api serves the REST interface consumed by the dashboard.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/contract"
)

// NewRouter builds the gin engine with every route mounted.
func NewRouter(cfg *contract.Config, log zerolog.Logger, svc *core.Service) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(accessLog(log))
	r.Use(errorResponder(log))

	h := NewHandlers(log, svc)

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/dashboard/summary", h.DashboardSummary)

	rules := api.Group("/rules")
	rules.GET("/", h.ListRules)
	rules.POST("/", h.CreateRule)
	rules.GET("/:id", h.GetRule)
	rules.PUT("/:id", h.UpdateRule)
	rules.DELETE("/:id", h.DeleteRule)

	insights := api.Group("/insights")
	insights.GET("/", h.ListInsights)
	insights.GET("/generate", h.GenerateList)
	insights.POST("/generate", h.Generate)
	insights.PATCH("/:id/resolve", h.ResolveInsight)

	projects := api.Group("/projects")
	projects.GET("/", h.ListProjects)
	projects.GET("/:id", h.GetProject)
	projects.GET("/:id/summary", h.ProjectSummary)

	api.POST("/snapshot", h.ReplaceSnapshot)

	return r
}

func accessLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http")
	}
}
