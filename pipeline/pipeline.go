package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/use-agent/harvest/backend"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/extract"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/score"
	"github.com/use-agent/harvest/simhash"
)

// Orchestrator runs the fetch, extract and score stages for a batch of
// URLs. One Orchestrator is shared by all requests.
type Orchestrator struct {
	chain         *backend.Chain
	cache         *cache.Cache
	extractor     *extract.Extractor
	scorer        score.Scorer
	maxConcurrent int
}

// New wires the pipeline stages together. maxConcurrent bounds how
// many URLs are in flight at once; the cache may be nil to disable
// caching.
func New(chain *backend.Chain, c *cache.Cache, ex *extract.Extractor, sc score.Scorer, maxConcurrent int) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Orchestrator{
		chain:         chain,
		cache:         c,
		extractor:     ex,
		scorer:        sc,
		maxConcurrent: maxConcurrent,
	}
}

// Run processes every URL in the request concurrently, bounded by a
// semaphore, and returns one result per URL in request order. A URL
// that cannot be fetched still yields a result with empty content and
// a zero score; it never fails the batch.
func (o *Orchestrator) Run(ctx context.Context, req *models.ScrapeRequest) []*models.URLResult {
	results := make([]*models.URLResult, len(req.URLs))

	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup

	for i, rawURL := range req.URLs {
		wg.Add(1)
		go func(idx int, targetURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = o.scrapeOne(ctx, targetURL, req)
		}(i, rawURL)
	}

	wg.Wait()
	return results
}

// scrapeOne resolves a single URL end to end.
//
// Flow:
//  1. Cache lookup (fresh hit skips fetch and extraction).
//  2. Fetch chain + extraction on miss, stored back in the cache.
//  3. Per-request derivations from the raw document: CSS selector
//     scope and Markdown rendition. The cached extraction itself stays
//     request-independent.
//  4. Score against the query.
func (o *Orchestrator) scrapeOne(ctx context.Context, rawURL string, req *models.ScrapeRequest) *models.URLResult {
	start := time.Now()

	key := cache.Key(rawURL, req.BrowserEnabled)

	var entry *cache.Entry
	var hit bool
	if o.cache != nil {
		entry, hit = o.cache.Get(key)
	}
	if !hit {
		entry = o.fetchAndExtract(ctx, key, rawURL, req.BrowserEnabled)
	}

	content := entry.Extracted
	sourceHTML := entry.Raw.Content

	if req.CSSSelector != "" && sourceHTML != "" {
		scoped, err := extract.ApplyCSSSelector(sourceHTML, req.CSSSelector)
		if err != nil {
			slog.Warn("css selector rejected, using full document",
				"url", rawURL, "selector", req.CSSSelector, "error", err)
		} else {
			sourceHTML = scoped
			content = o.extractor.Extract(scoped, rawURL)
		}
	}

	rawContent := content.FullText
	switch req.ContentFormat {
	case models.FormatMarkdown, models.FormatMarkdownCitations:
		md, err := o.extractor.Markdown(sourceHTML, rawURL, req.ContentFormat == models.FormatMarkdownCitations)
		if err != nil {
			slog.Warn("markdown conversion failed, falling back to text",
				"url", rawURL, "error", err)
		} else {
			rawContent = md
		}
	}

	images := []string{}
	if req.IncludeImages {
		images = content.Images
	}

	result := &models.URLResult{
		Query:  req.Query,
		Images: images,
		Result: models.PageResult{
			Title:      content.Title,
			URL:        rawURL,
			Content:    content.Snippet,
			Score:      o.scorer.Score(ctx, content.FullText, req.Query),
			RawContent: rawContent,
		},
		ResponseTime: roundSeconds(time.Since(start)),
	}

	slog.Debug("url resolved",
		"url", rawURL,
		"cache_hit", hit,
		"backend", entry.Raw.Backend,
		"score", result.Result.Score,
		"response_time", result.ResponseTime,
	)
	return result
}

// fetchAndExtract runs the fetch chain for a cache miss. When the
// refetched page is structurally unchanged from the last stored copy,
// the previous extraction is reused instead of re-parsed.
func (o *Orchestrator) fetchAndExtract(ctx context.Context, key, rawURL string, forceBrowser bool) *cache.Entry {
	raw := o.chain.Resolve(ctx, rawURL, forceBrowser)
	fp := simhash.FingerprintDOM(raw.Content)

	entry := &cache.Entry{Raw: raw, Fingerprint: fp}

	var prev *cache.Entry
	if o.cache != nil {
		prev, _ = o.cache.Previous(key)
	}
	// Both fingerprints must come from real markup; an empty fetch must
	// not inherit old content.
	if prev != nil && fp != 0 && prev.Fingerprint != 0 &&
		simhash.Similar(fp, prev.Fingerprint, simhash.DefaultThreshold) {
		slog.Debug("page structure unchanged since last fetch, reusing extraction",
			"url", rawURL, "distance", simhash.Distance(fp, prev.Fingerprint))
		entry.Extracted = prev.Extracted
	} else {
		entry.Extracted = o.extractor.Extract(raw.Content, rawURL)
	}

	if o.cache != nil {
		o.cache.Put(key, entry)
	}
	return entry
}

// roundSeconds converts a duration to seconds, rounded to 2 decimals.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
