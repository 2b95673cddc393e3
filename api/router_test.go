package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/harvest/backend"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/extract"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/pipeline"
	"github.com/use-agent/harvest/score"
)

type staticFetcher struct{ page string }

func (s *staticFetcher) Name() string { return "stub" }

func (s *staticFetcher) Fetch(_ context.Context, _ *backend.Request) (*backend.Result, error) {
	return &backend.Result{Content: s.page, Backend: "stub"}, nil
}

func testConfig(authEnabled bool, keys []string) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		Browser:   config.BrowserConfig{MaxPages: 8},
		Auth:      config.AuthConfig{Enabled: authEnabled, APIKeys: keys},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func newTestServer(cfg *config.Config) http.Handler {
	f := &staticFetcher{page: `<html><head><title>Alpha</title></head><body><p>alpha</p></body></html>`}
	chain := backend.NewChain(f, nil, nil, backend.Timeouts{})
	pipe := pipeline.New(chain, nil, extract.New(), score.Lexical{}, 4)
	browser := backend.NewBrowser(cfg.Browser)
	return NewRouter(pipe, browser, cfg, time.Now())
}

func TestRouter_HealthBypassesAuth(t *testing.T) {
	r := newTestServer(testConfig(true, []string{"secret-key"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without credentials", w.Code)
	}

	var health models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy with an idle pool", health.Status)
	}
	if health.Version == "" {
		t.Error("version must be set")
	}
	if health.PoolStats.MaxPages != 8 {
		t.Errorf("max_pages = %d, want 8", health.PoolStats.MaxPages)
	}
	if health.PoolStats.ActivePages != 0 {
		t.Errorf("active_pages = %d, want 0 before any browser fetch", health.PoolStats.ActivePages)
	}
}

func TestRouter_ScrapeRequiresAuth(t *testing.T) {
	r := newTestServer(testConfig(true, []string{"secret-key"}))
	body := `{"urls":["https://a.test/"]}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without credentials", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with a valid key; body: %s", w.Code, w.Body.String())
	}

	var resp models.ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Result.Title != "Alpha" {
		t.Errorf("results = %+v, want the stubbed page", resp.Results)
	}
}

func TestRouter_AuthDisabledOpensScrape(t *testing.T) {
	r := newTestServer(testConfig(false, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape",
		strings.NewReader(`{"urls":["https://a.test/"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", w.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := newTestServer(testConfig(false, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/crawl", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unknown route", w.Code)
	}
}
