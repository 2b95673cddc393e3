package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// EventJobCompleted is sent when an async scrape job finishes.
const EventJobCompleted = "job.completed"

// signatureHeader carries the hex HMAC-SHA256 of the request body,
// prefixed "sha256=", when the job registered a webhook secret.
const signatureHeader = "X-Harvest-Signature"

// retrySchedule spaces the delivery attempts of DeliverAsync. The
// zero entry is the initial attempt.
var retrySchedule = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

var client = &http.Client{Timeout: 10 * time.Second}

// Event is the payload posted to webhook endpoints.
type Event struct {
	Type      string      `json:"type"`
	JobID     string      `json:"job_id"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Deliver posts event to url, signing the body when secret is set. A
// response status of 400 or above counts as a failed delivery.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Harvest-Webhook/1.0")
	if secret != "" {
		req.Header.Set(signatureHeader, "sha256="+sign(body, secret))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook: endpoint answered %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync retries Deliver in the background on the retrySchedule.
// Failures are logged and never surfaced to the job that fired the
// event.
func DeliverAsync(url, secret string, event *Event) {
	go func() {
		for attempt, delay := range retrySchedule {
			if delay > 0 {
				time.Sleep(delay)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := Deliver(ctx, url, secret, event)
			cancel()

			if err == nil {
				slog.Info("webhook delivered",
					"url", url, "event", event.Type, "job_id", event.JobID, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", url, "event", event.Type, "job_id", event.JobID, "attempt", attempt+1, "error", err)
		}
		slog.Error("webhook delivery gave up",
			"url", url, "event", event.Type, "job_id", event.JobID)
	}()
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
