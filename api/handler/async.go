package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/pipeline"
	"github.com/use-agent/harvest/webhook"
)

// jobStore holds all in-flight and completed async jobs.
var jobStore sync.Map

func init() {
	// Background goroutine to expire jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			jobStore.Range(func(key, value any) bool {
				if value.(*models.Job).CreatedAt < cutoff {
					jobStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// ScrapeAsync returns a handler for POST /api/v1/scrape/async.
// It validates the request, registers a job and runs the pipeline in
// the background. The response carries the job ID for polling; when a
// webhook URL is given the results are also pushed on completion.
func ScrapeAsync(pipe *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AsyncScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		req.Defaults()

		jobID := "job-" + randomID()
		job := &models.Job{
			ID:        jobID,
			Status:    models.JobStatusProcessing,
			Total:     len(req.URLs),
			CreatedAt: time.Now().Unix(),
		}
		jobStore.Store(jobID, job)

		go runJob(pipe, job, &req)

		c.JSON(http.StatusOK, models.JobResponse{
			ID:     jobID,
			Status: job.Status,
			Total:  job.Total,
		})
	}
}

// GetJob returns a handler for GET /api/v1/scrape/jobs/:id.
func GetJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := jobStore.Load(c.Param("id"))
		if !ok {
			fail(c, http.StatusNotFound, models.ErrCodeInvalidInput, "job not found")
			return
		}

		job := val.(*models.Job)
		c.JSON(http.StatusOK, models.JobStatusResponse{
			ID:      job.ID,
			Status:  job.Status,
			Total:   job.Total,
			Results: job.Results,
		})
	}
}

// runJob executes the pipeline for an async job. The completed job is
// stored as a fresh value, so pollers observe either the processing
// record or the finished one, never a half-written state.
func runJob(pipe *pipeline.Orchestrator, job *models.Job, req *models.AsyncScrapeRequest) {
	// The request context dies with the HTTP response; the job must not.
	results := pipe.Run(context.Background(), &req.ScrapeRequest)

	jobStore.Store(job.ID, &models.Job{
		ID:        job.ID,
		Status:    models.JobStatusCompleted,
		Total:     job.Total,
		Results:   results,
		CreatedAt: job.CreatedAt,
	})

	slog.Info("async job finished", "id", job.ID, "total", job.Total)

	if req.WebhookURL != "" {
		webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventJobCompleted,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      models.ScrapeResponse{Results: results},
		})
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
