package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/harvest/models"
)

// Timeouts are the per-attempt deadlines for each chain tier.
type Timeouts struct {
	Script     time.Duration
	Renderless time.Duration
	Browser    time.Duration
}

type tier struct {
	fetcher Fetcher
	timeout time.Duration
}

// Chain escalates a fetch through the tiers in cost order: the render
// service first, plain HTTP second, the headless browser last. Tiers
// run strictly one at a time; the first usable result wins and later
// tiers are never started. The browser is the terminal tier: whatever
// it produces, including nothing, is the answer.
type Chain struct {
	tiers       []tier
	browserOnly []tier
}

// NewChain builds the escalation order from the three tiers. A zero
// timeout leaves that tier bounded only by the caller's context.
func NewChain(script, renderless, browser Fetcher, t Timeouts) *Chain {
	c := &Chain{}
	for _, candidate := range []tier{
		{script, t.Script},
		{renderless, t.Renderless},
		{browser, t.Browser},
	} {
		if candidate.fetcher != nil {
			c.tiers = append(c.tiers, candidate)
		}
	}
	if browser != nil {
		c.browserOnly = []tier{{browser, t.Browser}}
	}
	return c
}

// Resolve fetches the URL through the chain and always returns a
// result: when every tier fails the result simply has empty content.
// With forceBrowser set, the lighter tiers are skipped entirely.
func (c *Chain) Resolve(ctx context.Context, rawURL string, forceBrowser bool) *Result {
	tiers := c.tiers
	if forceBrowser {
		tiers = c.browserOnly
	}

	// One identity for all tiers, so escalation does not look like a
	// different visitor to the target.
	req := &Request{URL: rawURL, UserAgent: RandomUserAgent()}

	last := &Result{}
	for i, t := range tiers {
		final := i == len(tiers)-1

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if t.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, t.timeout)
		}
		res, err := t.fetcher.Fetch(attemptCtx, req)
		cancel()

		if err != nil {
			// Unavailability (service down, browser missing) reads
			// differently in logs than a page that failed to load.
			if models.CodeOf(err) == models.ErrCodeUnavailable {
				slog.Warn("backend unavailable",
					"backend", t.fetcher.Name(), "url", rawURL, "error", err)
			} else {
				slog.Warn("fetch attempt failed",
					"backend", t.fetcher.Name(), "url", rawURL,
					"code", models.CodeOf(err), "error", err)
			}
			continue
		}

		if Usable(res.Content) || final {
			if Blocked(res.Content) {
				slog.Warn("returning challenge page from terminal tier",
					"backend", t.fetcher.Name(), "url", rawURL)
			}
			return res
		}

		if res.Content == "" {
			slog.Debug("empty content, escalating",
				"backend", t.fetcher.Name(), "url", rawURL)
		} else {
			slog.Info("challenge page detected, escalating",
				"backend", t.fetcher.Name(), "url", rawURL)
		}
		last = res
	}
	return last
}
