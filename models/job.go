package models

// Job statuses reported by the async scrape endpoints.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
)

// JobResponse is the immediate response for POST /api/v1/scrape/async.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// JobStatusResponse is the response for GET /api/v1/scrape/jobs/:id.
type JobStatusResponse struct {
	ID      string       `json:"id"`
	Status  string       `json:"status"`
	Total   int          `json:"total"`
	Results []*URLResult `json:"results,omitempty"`
}

// Job tracks an in-progress async scrape operation.
type Job struct {
	ID        string
	Status    string
	Total     int
	Results   []*URLResult
	CreatedAt int64 // unix timestamp
}
