package models

// ScrapeResponse is the response for POST /api/v1/scrape. Results are
// ordered to match the request's urls list.
type ScrapeResponse struct {
	Results []*URLResult `json:"results"`
}

// URLResult is the per-URL record inside ScrapeResponse.
type URLResult struct {
	// Query echoes the query this page was scored against.
	Query string `json:"query"`

	// Images holds up to 5 absolute image URLs extracted from the
	// page, in document order. Empty (never null) when the request
	// did not ask for images or none were found.
	Images []string `json:"images"`

	// Result carries the scored page content.
	Result PageResult `json:"result"`

	// ResponseTime is the elapsed wall time for this URL in seconds,
	// rounded to 2 decimal places. Cache hits report the (much
	// smaller) time of the cached path, not the original fetch.
	ResponseTime float64 `json:"response_time"`
}

// PageResult is the content payload for a single fetched page. A page
// that could not be fetched at all still produces a PageResult with
// empty content fields and a zero score.
type PageResult struct {
	// Title is the page title, empty when the page has none.
	Title string `json:"title"`

	// URL is the requested URL, echoed back verbatim.
	URL string `json:"url"`

	// Content is a snippet: the first 200 characters of the page
	// text, with "..." appended when truncated.
	Content string `json:"content"`

	// Score is the relevance of this page to the query, in [0, 1],
	// rounded to 8 decimal places. 0 when the query is empty.
	Score float64 `json:"score"`

	// RawContent is the full extracted content in the requested
	// content_format (visible text by default).
	RawContent string `json:"raw_content"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
	BrowserPID  int `json:"browser_pid"`
}
