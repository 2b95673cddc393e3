package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/harvest/api"
	"github.com/use-agent/harvest/backend"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/extract"
	"github.com/use-agent/harvest/llm"
	"github.com/use-agent/harvest/pipeline"
	"github.com/use-agent/harvest/score"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("harvest starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxConcurrent", cfg.Pipeline.MaxConcurrent,
	)

	// ── 3. Initialise fetch backends and the escalation chain ────────
	// None of these touch the network yet: the browser launches lazily
	// on its first fetch, and an unreachable render service surfaces
	// per-attempt. Startup never fails on a missing backend.
	splash := backend.NewSplash(cfg.Splash)
	defer splash.Close()

	renderless := backend.NewRenderless()

	browser := backend.NewBrowser(cfg.Browser)
	defer browser.Close()

	chain := backend.NewChain(splash, renderless, browser, backend.Timeouts{
		Script:     cfg.Splash.Timeout,
		Renderless: cfg.HTTP.Timeout,
		Browser:    cfg.Browser.Timeout,
	})

	// ── 4. Initialise extraction, scoring and cache ──────────────────
	extractor := extract.New()
	scorer := newScorer(cfg.Scorer)
	pageCache := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	defer pageCache.Stop()

	pipe := pipeline.New(chain, pageCache, extractor, scorer, cfg.Pipeline.MaxConcurrent)

	// ── 5. Router and HTTP server ─────────────────────────────────────
	router := api.NewRouter(pipe, browser, cfg, time.Now())
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	if err := runServer(addr, router); err != nil && err != http.ErrServerClosed {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	// browser.Close() runs via defer — drains the page pool and kills
	// Chrome if it was ever launched.
	slog.Info("harvest stopped")
}

// runServer serves h on addr until SIGINT or SIGTERM, then drains
// in-flight requests for up to 5 seconds.
func runServer(addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("HTTP server drained gracefully")
	return nil
}

// newScorer picks the scorer implementation from configuration.
// Embedding scoring needs an API key; without one the server falls
// back to the lexical scorer rather than refusing to start.
func newScorer(cfg config.ScorerConfig) score.Scorer {
	if cfg.Kind == "embedding" {
		if cfg.EmbedAPIKey == "" {
			slog.Warn("embedding scorer selected but no API key configured, using lexical")
			return score.Lexical{}
		}
		client := llm.NewClient(nil, cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel)
		return score.NewEmbedding(client)
	}
	return score.Lexical{}
}

// initLogger installs the process-wide slog handler.
func initLogger(cfg config.LogConfig) {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	level, ok := levels[cfg.Level]
	if !ok {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
