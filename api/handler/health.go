package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/backend"
	"github.com/use-agent/harvest/models"
)

const serviceVersion = "0.1.0"

// degradedUtilization is the fraction of the page pool that may be
// active before the service reports itself degraded.
const degradedUtilization = 0.8

// Health returns the GET /api/v1/health handler. The endpoint stays
// outside auth so probes always reach it; a browser that was never
// launched reports an idle pool and a healthy status.
func Health(browser *backend.Browser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := browser.Stats()

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    poolStatus(stats),
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   serviceVersion,
		})
	}
}

// poolStatus is "degraded" once active pages cross the utilization
// threshold, "healthy" otherwise.
func poolStatus(stats models.PoolStats) string {
	if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*degradedUtilization) {
		return "degraded"
	}
	return "healthy"
}
