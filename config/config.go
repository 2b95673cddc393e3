package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Splash    SplashConfig
	HTTP      HTTPConfig
	Browser   BrowserConfig
	Pipeline  PipelineConfig
	Cache     CacheConfig
	Scorer    ScorerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// SplashConfig controls the script-rendering tier, a Splash-compatible
// render service reached over HTTP.
type SplashConfig struct {
	// URL is the base URL of the render service.
	URL string // default: "http://localhost:8050"

	// Wait is how long the service lets page scripts run before
	// snapshotting, in seconds. Passed through as the wait parameter.
	Wait float64 // default: 2

	// RenderTimeout is the service-side render budget in seconds.
	// Passed through as the timeout parameter.
	RenderTimeout int // default: 10

	// Timeout is the whole-attempt deadline for one render call.
	Timeout time.Duration // default: 15s

	// FailLimit is the number of consecutive failures for a domain
	// before the tier fast-fails that domain without calling out.
	FailLimit int // default: 3

	// FailTTL is how long a domain stays in the fast-fail set.
	FailTTL time.Duration // default: 5m
}

// HTTPConfig controls the plain HTTP tier.
type HTTPConfig struct {
	// Timeout is the whole-attempt deadline for one GET.
	Timeout time.Duration // default: 10s
}

// BrowserConfig controls the headless browser tier.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// Timeout is the whole-attempt deadline for one browser fetch
	// (navigation + render + HTML capture).
	Timeout time.Duration // default: 15s

	// MinPages is the minimum number of pages kept in the pool.
	MinPages int // default: 2

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 8

	// MemThreshold is the heap memory fraction (0.0-1.0) above which
	// the pool shrinks.
	MemThreshold float64 // default: 0.9

	// ScaleStep is the fraction of pool size to grow or shrink per
	// sizing interval.
	ScaleStep float64 // default: 0.05

	// BlockedResourceTypes lists resource types the browser refuses
	// to load. default: ["Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// PipelineConfig controls batch orchestration.
type PipelineConfig struct {
	// MaxConcurrent caps the number of URLs fetched at once within
	// a single request.
	MaxConcurrent int // default: 8
}

// CacheConfig controls the fetch cache.
type CacheConfig struct {
	// TTL is how long a cached page stays fresh.
	TTL time.Duration // default: 60s

	// MaxEntries is the maximum number of cached pages.
	MaxEntries int // default: 1024
}

// ScorerConfig selects and configures the relevance scorer.
type ScorerConfig struct {
	// Kind picks the scorer: "lexical" or "embedding".
	Kind string // default: "lexical"

	// EmbedBaseURL is the OpenAI-compatible embeddings endpoint base.
	EmbedBaseURL string // default: "https://api.openai.com/v1"

	// EmbedAPIKey authenticates embedding calls.
	EmbedAPIKey string

	// EmbedModel is the embedding model name.
	EmbedModel string // default: "text-embedding-3-small"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys (for MVP; replace with DB later).
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HARVEST_HOST", "0.0.0.0"),
			Port: envIntOr("HARVEST_PORT", 8080),
			Mode: envOr("HARVEST_MODE", "release"),
		},
		Splash: SplashConfig{
			URL:           envOr("HARVEST_SPLASH_URL", "http://localhost:8050"),
			Wait:          envFloatOr("HARVEST_SPLASH_WAIT", 2),
			RenderTimeout: envIntOr("HARVEST_SPLASH_RENDER_TIMEOUT", 10),
			Timeout:       envDurationOr("HARVEST_SPLASH_TIMEOUT", 15*time.Second),
			FailLimit:     envIntOr("HARVEST_SPLASH_FAIL_LIMIT", 3),
			FailTTL:       envDurationOr("HARVEST_SPLASH_FAIL_TTL", 5*time.Minute),
		},
		HTTP: HTTPConfig{
			Timeout: envDurationOr("HARVEST_HTTP_TIMEOUT", 10*time.Second),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("HARVEST_HEADLESS", true),
			NoSandbox:    envBoolOr("HARVEST_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("HARVEST_BROWSER_BIN"),
			Proxy:        os.Getenv("HARVEST_PROXY"),
			Timeout:      envDurationOr("HARVEST_BROWSER_TIMEOUT", 15*time.Second),
			MinPages:     envIntOr("HARVEST_MIN_PAGES", 2),
			MaxPages:     envIntOr("HARVEST_MAX_PAGES", 8),
			MemThreshold: envFloatOr("HARVEST_MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("HARVEST_SCALE_STEP", 0.05),
			BlockedResourceTypes: envSliceOr("HARVEST_BLOCKED_RESOURCES", []string{
				"Stylesheet", "Font", "Media",
			}),
		},
		Pipeline: PipelineConfig{
			MaxConcurrent: envIntOr("HARVEST_MAX_CONCURRENT", 8),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("HARVEST_CACHE_TTL", 60*time.Second),
			MaxEntries: envIntOr("HARVEST_CACHE_MAX_ENTRIES", 1024),
		},
		Scorer: ScorerConfig{
			Kind:         envOr("HARVEST_SCORER", "lexical"),
			EmbedBaseURL: envOr("HARVEST_EMBED_BASE_URL", "https://api.openai.com/v1"),
			EmbedAPIKey:  os.Getenv("HARVEST_EMBED_API_KEY"),
			EmbedModel:   envOr("HARVEST_EMBED_MODEL", "text-embedding-3-small"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("HARVEST_AUTH_ENABLED", true),
			APIKeys: envSliceOr("HARVEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("HARVEST_RATE_RPS", 5.0),
			Burst:             envIntOr("HARVEST_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("HARVEST_LOG_LEVEL", "info"),
			Format: envOr("HARVEST_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
