package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/pipeline"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// The endpoint validates the request and hands the URL set to the
// pipeline, which fetches, extracts and scores every URL concurrently.
// Per-URL failures are contained inside the pipeline (they come back as
// empty content with a zero score), so the handler itself only rejects
// invalid input.
func Scrape(pipe *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		req.Defaults()

		results := pipe.Run(c.Request.Context(), &req)
		c.JSON(http.StatusOK, models.ScrapeResponse{Results: results})
	}
}

// fail writes the error envelope shared by the scrape endpoints.
func fail(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": models.ErrorDetail{Code: code, Message: msg}})
}
