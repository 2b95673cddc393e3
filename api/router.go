package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/api/handler"
	"github.com/use-agent/harvest/api/middleware"
	"github.com/use-agent/harvest/backend"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/pipeline"
)

// NewRouter assembles the Gin engine: Recovery and request logging on
// everything, then the /api/v1 group with health open to probes and
// the scrape surface behind Auth (when keys are configured) and the
// per-identity rate limiter.
func NewRouter(pipe *pipeline.Orchestrator, browser *backend.Browser, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(browser, startTime))

	scrape := v1.Group("")
	if cfg.Auth.Enabled {
		scrape.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	scrape.Use(middleware.RateLimit(cfg.RateLimit))

	scrape.POST("/scrape", handler.Scrape(pipe))
	scrape.POST("/scrape/async", handler.ScrapeAsync(pipe))
	scrape.GET("/scrape/jobs/:id", handler.GetJob())

	return r
}
