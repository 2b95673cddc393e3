// Command benchmark exercises a running harvest instance against a
// fixed set of pages and reports per-URL latency. Run 1 of each URL is
// a cold fetch; later runs land inside the cache TTL and measure hit
// latency.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

type config struct {
	baseURL string
	apiKey  string
	runs    int
	query   string
	outPath string
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.baseURL, "api-url", "http://localhost:8080", "harvest API base URL")
	flag.StringVar(&cfg.apiKey, "api-key", "", "API key for authenticated requests")
	flag.IntVar(&cfg.runs, "runs", 3, "runs per URL; run 1 is cold, later runs hit the cache")
	flag.StringVar(&cfg.query, "query", "", "optional query to score pages against")
	flag.StringVar(&cfg.outPath, "output", "benchmark-results.json", "JSON report path")
	flag.Parse()
	return cfg
}

// targets spans the page shapes the fetch chain has to handle.
var targets = []struct {
	label string
	url   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// Wire types, mirroring the models package.

type scrapeRequest struct {
	URLs  []string `json:"urls"`
	Query string   `json:"query,omitempty"`
}

type pageResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	RawContent string  `json:"raw_content"`
}

type queryResult struct {
	Query        string     `json:"query"`
	Images       []string   `json:"images"`
	Result       pageResult `json:"result"`
	ResponseTime float64    `json:"response_time"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type scrapeResponse struct {
	Results []queryResult `json:"results"`
	Error   *apiError     `json:"error,omitempty"`
}

// Report types written to the JSON output file.

type sample struct {
	Run     int     `json:"run"`
	Seconds float64 `json:"seconds"`
	Score   float64 `json:"score"`
	Chars   int     `json:"content_length"`
	Title   bool    `json:"has_title"`
	Images  int     `json:"images"`
	OK      bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
}

type summary struct {
	ColdSeconds float64 `json:"cold_seconds"`
	WarmSeconds float64 `json:"warm_seconds"`
	Score       float64 `json:"score"`
	Chars       float64 `json:"content_length"`
}

type siteReport struct {
	URL     string   `json:"url"`
	Label   string   `json:"label"`
	Samples []sample `json:"runs"`
	Summary *summary `json:"averages,omitempty"`
}

type report struct {
	Timestamp  string       `json:"timestamp"`
	APIURL     string       `json:"api_url"`
	RunsPerURL int          `json:"runs_per_url"`
	Query      string       `json:"query,omitempty"`
	Sites      []siteReport `json:"results"`
}

type bench struct {
	cfg    config
	client *http.Client
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "benchmark:", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	b := &bench{
		cfg:    cfg,
		client: &http.Client{Timeout: 90 * time.Second},
	}

	fmt.Printf("harvest benchmark against %s (%d runs per URL)\n", cfg.baseURL, cfg.runs)
	if cfg.query != "" {
		fmt.Printf("scoring against query %q\n", cfg.query)
	}
	fmt.Println()

	if err := b.ping(); err != nil {
		return fmt.Errorf("API unreachable at %s (is harvest running?): %w", cfg.baseURL, err)
	}

	rep := report{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     cfg.baseURL,
		RunsPerURL: cfg.runs,
		Query:      cfg.query,
	}

	for _, t := range targets {
		fmt.Printf("[%s] %s\n", t.label, t.url)
		site := siteReport{URL: t.url, Label: t.label}

		for n := 1; n <= cfg.runs; n++ {
			s := b.scrapeOnce(t.url, n)
			if s.OK {
				fmt.Printf("  run %d: %.2fs, %d chars\n", n, s.Seconds, s.Chars)
			} else {
				fmt.Printf("  run %d: failed: %s\n", n, s.Error)
			}
			site.Samples = append(site.Samples, s)
		}

		site.Summary = summarize(site.Samples)
		rep.Sites = append(rep.Sites, site)
		fmt.Println()
	}

	printSummary(rep.Sites)

	if err := saveReport(cfg.outPath, rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("\nfull report: %s\n", cfg.outPath)
	return nil
}

func (b *bench) ping() error {
	resp, err := b.client.Get(b.cfg.baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (b *bench) scrapeOnce(url string, n int) sample {
	s := sample{Run: n}

	payload, err := json.Marshal(scrapeRequest{URLs: []string{url}, Query: b.cfg.query})
	if err != nil {
		s.Error = err.Error()
		return s
	}

	req, err := http.NewRequest(http.MethodPost, b.cfg.baseURL+"/api/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		s.Error = err.Error()
		return s
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	defer resp.Body.Close()

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		s.Error = fmt.Sprintf("decode response: %v", err)
		return s
	}
	if sr.Error != nil {
		s.Error = fmt.Sprintf("%s: %s", sr.Error.Code, sr.Error.Message)
		return s
	}
	if len(sr.Results) == 0 {
		s.Error = "no results in response"
		return s
	}

	first := sr.Results[0]
	s.OK = true
	s.Seconds = first.ResponseTime
	s.Score = first.Result.Score
	s.Chars = len(first.Result.RawContent)
	s.Title = first.Result.Title != ""
	s.Images = len(first.Images)
	return s
}

// summarize averages the successful samples, keeping run 1 (cold)
// separate from the cache-hit runs.
func summarize(samples []sample) *summary {
	var sum summary
	var ok, warm int

	for _, s := range samples {
		if !s.OK {
			continue
		}
		ok++
		sum.Score += s.Score
		sum.Chars += float64(s.Chars)
		if s.Run == 1 {
			sum.ColdSeconds = s.Seconds
		} else {
			sum.WarmSeconds += s.Seconds
			warm++
		}
	}
	if ok == 0 {
		return nil
	}

	sum.Score /= float64(ok)
	sum.Chars /= float64(ok)
	if warm > 0 {
		sum.WarmSeconds /= float64(warm)
	}
	return &sum
}

func printSummary(sites []siteReport) {
	rule := strings.Repeat("-", 80)
	fmt.Println(rule)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tCold\tWarm\tScore\tChars")
	for _, site := range sites {
		if site.Summary == nil {
			fmt.Fprintf(w, "%s\tfailed\t-\t-\t-\n", shorten(site.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%.2fs\t%.2fs\t%.4f\t%.0f\n",
			shorten(site.URL, 40),
			site.Summary.ColdSeconds,
			site.Summary.WarmSeconds,
			site.Summary.Score,
			site.Summary.Chars,
		)
	}
	w.Flush()
	fmt.Println(rule)
}

func shorten(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func saveReport(path string, rep report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
