package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/models"
)

// Browser is the headless-browser tier, the most capable and most
// expensive fetcher. It runs one Chrome process and reuses pages
// through a health-tracked pool.
//
// The browser launches lazily on first use: a machine without Chrome
// still serves the lighter tiers, and browser fetches fail with
// BACKEND_UNAVAILABLE instead of taking the whole service down.
type Browser struct {
	cfg config.BrowserConfig

	mu      sync.Mutex // guards launch
	browser *rod.Browser
	pool    *pagePool[*rod.Page]

	active atomic.Int32
}

// NewBrowser prepares the browser tier without launching anything.
func NewBrowser(cfg config.BrowserConfig) *Browser {
	return &Browser{cfg: cfg}
}

func (b *Browser) Name() string { return "browser" }

// ensureLaunched starts Chrome and the page pool on first call.
// Failures are returned, not cached, so a later fetch retries the
// launch (e.g. after the Chrome binary is installed).
func (b *Browser) ensureLaunched() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(b.cfg.Headless).
		NoSandbox(b.cfg.NoSandbox)

	if b.cfg.BrowserBin != "" {
		l = l.Bin(b.cfg.BrowserBin)
	}
	if b.cfg.Proxy != "" {
		l = l.Proxy(b.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return models.NewFetchError(models.ErrCodeUnavailable, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return models.NewFetchError(models.ErrCodeUnavailable, "failed to connect to browser", err)
	}

	b.browser = browser
	b.pool = newPagePool(
		poolConfig{
			minPages:     b.cfg.MinPages,
			maxPages:     b.cfg.MaxPages,
			memThreshold: b.cfg.MemThreshold,
			scaleStep:    b.cfg.ScaleStep,
		},
		func() (*rod.Page, error) {
			return browser.Page(proto.TargetCreateTarget{})
		},
		func(p *rod.Page) {
			_ = p.Close()
		},
	)
	slog.Info("page pool created", "minPages", b.cfg.MinPages, "maxPages", b.cfg.MaxPages)
	return nil
}

// Fetch navigates a pooled page to the URL, waits for the DOM to
// settle, and returns the rendered HTML.
//
// Lifecycle:
//
//  1. Acquire page        – borrow a tab from the pool (or create one)
//  2. DEFER: cleanup      – about:blank + return to pool (leak prevention)
//  3. Stealth injection   – mask navigator.webdriver etc. (before navigation!)
//  4. Identity + headers  – user agent override, Google search Referer
//  5. Hijack mount        – block configured resources + ad domains (before navigation!)
//  6. Context binding     – propagate the attempt deadline to all Rod calls
//  7. Navigate            – triggers page load
//  8. Wait                – DOM stable
//  9. Extract             – page.HTML()
//
// Steps 3-5 must precede step 7: stealth JS and request interception
// only apply to navigations that happen after they are installed.
// Step 2's about:blank uses the ORIGINAL page reference (without the
// attempt context), so cleanup succeeds even after the deadline fires.
func (b *Browser) Fetch(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	if err := b.ensureLaunched(); err != nil {
		return nil, err
	}

	b.active.Add(1)
	defer b.active.Add(-1)

	handle, acquireErr := b.pool.get(ctx)
	if acquireErr != nil {
		return nil, models.NewFetchError(models.ErrCodeUnavailable,
			"failed to acquire page from pool", acquireErr)
	}
	page := handle.page

	success := false
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pool.put(handle, success)
	}()

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	if req.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{UserAgent: req.UserAgent}.Call(page)
	}

	// Extra headers: pretend we arrived from a Google search unless
	// the caller set a Referer themselves.
	extraHeaders := make(map[string]string, len(req.Headers)+1)
	if _, hasReferer := req.Headers["Referer"]; !hasReferer {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	if len(extraHeaders) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(extraHeaders),
		}.Call(page)
	}

	router := setupHijack(page, b.cfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	// NOTE: WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests on Chromium 145+. WaitDOMStable avoids that.
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	success = true
	return &Result{
		Content: rawHTML,
		Backend: b.Name(),
		Elapsed: time.Since(start),
	}, nil
}

// Stats returns a snapshot of the pool's current state.
func (b *Browser) Stats() models.PoolStats {
	stats := models.PoolStats{MaxPages: b.cfg.MaxPages}
	b.mu.Lock()
	launched := b.pool != nil
	b.mu.Unlock()
	if launched {
		stats.ActivePages = b.pool.activeCount()
	}
	return stats
}

// Close drains the page pool and kills the browser process. Call this
// on graceful shutdown to prevent zombie Chrome processes.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return
	}
	slog.Info("browser shutting down: draining page pool")
	b.pool.stop()
	slog.Info("browser shutting down: closing browser")
	b.browser.MustClose()
	b.browser = nil
	b.pool = nil
	slog.Info("browser shutdown complete")
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed FetchErrors so callers
// can tell timeouts from navigation failures.
func categorizeError(err error, msg string) *models.FetchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewFetchError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewFetchError(models.ErrCodeTimeout, "fetch canceled", err)
	default:
		return models.NewFetchError(models.ErrCodeNavigation, msg, err)
	}
}
