package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URLs are the target pages to fetch. Required, at least one.
	// Each entry must be an absolute URL.
	URLs []string `json:"urls" binding:"required,min=1,max=100,dive,url"`

	// Query is the free-text query every fetched page is scored
	// against. Empty query yields a neutral score of 0 for all pages.
	Query string `json:"query,omitempty"`

	// IncludeImages controls whether image URLs extracted from each
	// page are returned. Extraction itself always runs; this only
	// gates the response field.
	// Default: false.
	IncludeImages bool `json:"include_images,omitempty"`

	// BrowserEnabled forces every fetch in this request straight to
	// the headless browser, skipping the render service and plain
	// HTTP tiers.
	// Default: false.
	BrowserEnabled bool `json:"browser_enabled,omitempty"`

	// ContentFormat controls what the raw_content field carries.
	// "text" (default): whitespace-collapsed visible page text.
	// "markdown": main article content converted to Markdown.
	// "markdown_citations": Markdown with inline links rewritten
	// as numbered reference-style citations.
	ContentFormat string `json:"content_format,omitempty" binding:"omitempty,oneof=text markdown markdown_citations"`

	// CSSSelector optionally narrows extraction and scoring to the
	// matched elements' outer HTML. Fetching and caching are
	// unaffected; the scope is applied per request.
	CSSSelector string `json:"css_selector,omitempty"`
}

// Content format values accepted by ScrapeRequest.ContentFormat.
const (
	FormatText              = "text"
	FormatMarkdown          = "markdown"
	FormatMarkdownCitations = "markdown_citations"
)

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.ContentFormat == "" {
		r.ContentFormat = FormatText
	}
}

// AsyncScrapeRequest is the payload for POST /api/v1/scrape/async.
// It runs the same pipeline as the synchronous endpoint but returns a
// job ID immediately and optionally notifies a webhook on completion.
type AsyncScrapeRequest struct {
	ScrapeRequest

	// WebhookURL, when set, receives a signed POST once the job finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret is the HMAC-SHA256 key used to sign webhook
	// deliveries. Ignored when WebhookURL is empty.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}
