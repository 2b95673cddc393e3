package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/backend"
	"github.com/use-agent/harvest/extract"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/pipeline"
	"github.com/use-agent/harvest/score"
)

// stubFetcher serves canned markup per URL, mutex-guarded because the
// pipeline fetches concurrently.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
}

func (s *stubFetcher) Name() string { return "stub" }

func (s *stubFetcher) Fetch(_ context.Context, req *backend.Request) (*backend.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &backend.Result{Content: s.pages[req.URL], Backend: "stub"}, nil
}

func newTestRouter(pages map[string]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	chain := backend.NewChain(&stubFetcher{pages: pages}, nil, nil, backend.Timeouts{})
	pipe := pipeline.New(chain, nil, extract.New(), score.Lexical{}, 4)

	r := gin.New()
	r.POST("/api/v1/scrape", Scrape(pipe))
	r.POST("/api/v1/scrape/async", ScrapeAsync(pipe))
	r.GET("/api/v1/scrape/jobs/:id", GetJob())
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error models.ErrorDetail `json:"error"`
}

func TestScrape_HappyPath(t *testing.T) {
	r := newTestRouter(map[string]string{
		"https://a.test/": `<html><head><title>Alpha</title></head><body><p>alpha article about caching</p></body></html>`,
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/scrape",
		`{"urls":["https://a.test/"],"query":"caching"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp models.ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(resp.Results))
	}

	got := resp.Results[0]
	if got.Query != "caching" {
		t.Errorf("query = %q, want it echoed", got.Query)
	}
	if got.Result.URL != "https://a.test/" {
		t.Errorf("url = %q, want it echoed", got.Result.URL)
	}
	if got.Result.Title != "Alpha" {
		t.Errorf("title = %q, want Alpha", got.Result.Title)
	}
	if got.Result.Score <= 0 {
		t.Errorf("score = %v, want positive for overlapping query", got.Result.Score)
	}

	// Wire field names are part of the contract.
	body := w.Body.String()
	for _, key := range []string{
		`"results"`, `"query"`, `"images"`, `"result"`, `"response_time"`,
		`"title"`, `"url"`, `"content"`, `"score"`, `"raw_content"`,
	} {
		if !strings.Contains(body, key) {
			t.Errorf("response missing %s field: %s", key, body)
		}
	}
}

func TestScrape_ImagesNeverNull(t *testing.T) {
	r := newTestRouter(map[string]string{
		"https://a.test/": `<html><body><p>no images here</p></body></html>`,
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/scrape", `{"urls":["https://a.test/"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"images":[]`) {
		t.Errorf("images must serialize as an empty array, got: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), `"images":null`) {
		t.Errorf("images must never be null: %s", w.Body.String())
	}
}

func TestScrape_InvalidInput(t *testing.T) {
	r := newTestRouter(nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty urls", `{"urls":[]}`},
		{"missing urls", `{"query":"x"}`},
		{"relative url", `{"urls":["not-a-url"]}`},
		{"malformed json", `{"urls":`},
		{"bad content format", `{"urls":["https://a.test/"],"content_format":"xml"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/scrape", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
			var env errorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if env.Error.Code != models.ErrCodeInvalidInput {
				t.Errorf("error code = %q, want %q", env.Error.Code, models.ErrCodeInvalidInput)
			}
			if env.Error.Message == "" {
				t.Error("error message must not be empty")
			}
		})
	}
}

func TestScrape_FailedURLStillListed(t *testing.T) {
	// A URL the stub has no page for resolves to empty content rather
	// than failing the request.
	r := newTestRouter(map[string]string{
		"https://a.test/": `<html><head><title>Alpha</title></head><body><p>here</p></body></html>`,
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/scrape",
		`{"urls":["https://a.test/","https://gone.test/"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp models.ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[1].Result.Content != "" || resp.Results[1].Result.Score != 0 {
		t.Errorf("unfetchable URL must yield empty content and zero score, got %+v", resp.Results[1].Result)
	}
}

func TestScrapeAsync_JobLifecycle(t *testing.T) {
	r := newTestRouter(map[string]string{
		"https://a.test/": `<html><head><title>Alpha</title></head><body><p>alpha body</p></body></html>`,
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/scrape/async", `{"urls":["https://a.test/"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var jobResp models.JobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &jobResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(jobResp.ID, "job-") {
		t.Errorf("job id = %q, want job- prefix", jobResp.ID)
	}
	if jobResp.Status != models.JobStatusProcessing {
		t.Errorf("status = %q, want %q", jobResp.Status, models.JobStatusProcessing)
	}
	if jobResp.Total != 1 {
		t.Errorf("total = %d, want 1", jobResp.Total)
	}

	// Poll until the background run finishes.
	var status models.JobStatusResponse
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := doJSON(t, r, http.MethodGet, "/api/v1/scrape/jobs/"+jobResp.ID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("poll status = %d, want 200", w.Code)
		}
		if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode poll: %v", err)
		}
		if status.Status == models.JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, last status %q", status.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(status.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(status.Results))
	}
	if status.Results[0].Result.Title != "Alpha" {
		t.Errorf("title = %q, want Alpha", status.Results[0].Result.Title)
	}
}

func TestScrapeAsync_InvalidWebhookURL(t *testing.T) {
	r := newTestRouter(nil)
	w := doJSON(t, r, http.MethodPost, "/api/v1/scrape/async",
		`{"urls":["https://a.test/"],"webhook_url":"not-a-url"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a malformed webhook url", w.Code)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	r := newTestRouter(nil)
	w := doJSON(t, r, http.MethodGet, "/api/v1/scrape/jobs/job-missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != models.ErrCodeInvalidInput {
		t.Errorf("error code = %q, want %q", env.Error.Code, models.ErrCodeInvalidInput)
	}
}
