package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/models"
)

// Splash is the script-rendering tier. It asks a Splash-compatible
// render service to load the page, let scripts run for a fixed wait,
// and hand back the rendered HTML. Cheaper than a full browser, good
// enough for most script-built pages.
type Splash struct {
	base   string
	wait   float64
	render int
	client *http.Client
	memory *FailureMemory
}

// NewSplash creates the render-service tier. Domains that keep failing
// are put in a cooldown so a dead or struggling service degrades to a
// fast skip instead of a timeout per URL.
func NewSplash(cfg config.SplashConfig) *Splash {
	return &Splash{
		base:   strings.TrimRight(cfg.URL, "/"),
		wait:   cfg.Wait,
		render: cfg.RenderTimeout,
		client: &http.Client{Timeout: cfg.Timeout},
		memory: NewFailureMemory(cfg.FailLimit, cfg.FailTTL),
	}
}

func (s *Splash) Name() string { return "splash" }

// Close stops the failure-memory janitor.
func (s *Splash) Close() {
	s.memory.Stop()
}

func (s *Splash) Fetch(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	domain := domainOf(req.URL)

	if s.memory.Skip(domain) {
		return nil, models.NewFetchError(models.ErrCodeUnavailable,
			fmt.Sprintf("splash: domain %s in failure cooldown", domain), nil)
	}

	params := url.Values{}
	params.Set("url", req.URL)
	params.Set("wait", strconv.FormatFloat(s.wait, 'f', -1, 64))
	params.Set("timeout", strconv.Itoa(s.render))
	renderURL := s.base + "/render.html?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, renderURL, nil)
	if err != nil {
		return nil, models.NewFetchError(models.ErrCodeRender, "splash: build request", err)
	}
	if req.UserAgent != "" {
		// Splash forwards the incoming User-Agent to the target page.
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.memory.MarkFailure(domain)
		if isTimeout(err) {
			return nil, models.NewFetchError(models.ErrCodeTimeout, "splash: render timed out", err)
		}
		// Transport-level failure means the render service itself is
		// unreachable, not that the target page misbehaved.
		return nil, models.NewFetchError(models.ErrCodeUnavailable, "splash: render service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.memory.MarkFailure(domain)
		return nil, models.NewFetchError(models.ErrCodeRender,
			fmt.Sprintf("splash: render failed with status %d", resp.StatusCode), nil)
	}

	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		s.memory.MarkFailure(domain)
		return nil, models.NewFetchError(models.ErrCodeRender, "splash: read body", err)
	}

	s.memory.MarkSuccess(domain)
	return &Result{
		Content: string(body),
		Backend: s.Name(),
		Elapsed: time.Since(start),
	}, nil
}
