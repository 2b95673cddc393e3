package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/harvest/extract"
)

// scrapeRequest mirrors the Harvest API request model.
type scrapeRequest struct {
	URLs           []string `json:"urls"`
	Query          string   `json:"query,omitempty"`
	IncludeImages  bool     `json:"include_images,omitempty"`
	BrowserEnabled bool     `json:"browser_enabled,omitempty"`
	ContentFormat  string   `json:"content_format,omitempty"`
}

// urlResult mirrors one entry of the Harvest API response.
type urlResult struct {
	Query  string   `json:"query"`
	Images []string `json:"images"`
	Result struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		Score      float64 `json:"score"`
		RawContent string  `json:"raw_content"`
	} `json:"result"`
	ResponseTime float64 `json:"response_time"`
}

// scrapeResponse mirrors the Harvest API response envelope. Error is
// only set on non-200 responses.
type scrapeResponse struct {
	Results []urlResult `json:"results"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("HARVEST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	// Optional: the API may run with auth disabled.
	apiKey := os.Getenv("HARVEST_API_KEY")

	s := server.NewMCPServer(
		"harvest",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapePageTool := mcp.NewTool("scrape_page",
		mcp.WithDescription("Fetch a web page through the tiered scraping pipeline (render service, plain HTTP, headless browser) and return its extracted content. An optional query scores the page for relevance."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
		mcp.WithString("query",
			mcp.Description("Free-text query to score the page against; the score appears in the output header"),
		),
		mcp.WithBoolean("include_images",
			mcp.Description("Include extracted image URLs in the output"),
		),
		mcp.WithBoolean("browser_enabled",
			mcp.Description("Skip the lighter tiers and render directly with the headless browser"),
		),
		mcp.WithString("format",
			mcp.Description("Content format: 'text' (default, visible page text), 'markdown', or 'markdown_citations' (links as numbered references)"),
			mcp.Enum("text", "markdown", "markdown_citations"),
		),
	)
	s.AddTool(scrapePageTool, handleScrapePage(apiURL, apiKey))

	scrapeBatchTool := mcp.NewTool("scrape_batch",
		mcp.WithDescription("Scrape multiple URLs in one call and return extracted content for each, in input order. Useful for comparing several sources against the same query."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to scrape (max 100)"),
		),
		mcp.WithString("query",
			mcp.Description("Free-text query every page is scored against"),
		),
		mcp.WithString("format",
			mcp.Description("Content format: 'text' (default), 'markdown', or 'markdown_citations'"),
			mcp.Enum("text", "markdown", "markdown_citations"),
		),
	)
	s.AddTool(scrapeBatchTool, handleScrapeBatch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// callScrapeAPI posts a scrape request to the Harvest API and decodes
// the response.
func callScrapeAPI(ctx context.Context, client *http.Client, apiURL, apiKey string, reqBody *scrapeRequest) (*scrapeResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var scrapeResp scrapeResponse
	if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if scrapeResp.Error != nil {
		return nil, fmt.Errorf("[%s] %s", scrapeResp.Error.Code, scrapeResp.Error.Message)
	}
	return &scrapeResp, nil
}

// writeResult formats one scraped page for the tool output: a small
// header, the content in the requested format, then a token estimate
// so the caller can budget follow-up prompts.
func writeResult(sb *strings.Builder, r *urlResult, withScore bool) {
	fmt.Fprintf(sb, "Title: %s\nSource: %s\n", r.Result.Title, r.Result.URL)
	if withScore {
		fmt.Fprintf(sb, "Score: %.4f\n", r.Result.Score)
	}
	sb.WriteString("\n")

	if r.Result.RawContent == "" {
		sb.WriteString("(no content could be fetched)\n")
	} else {
		sb.WriteString(r.Result.RawContent)
		sb.WriteString("\n")
	}

	if len(r.Images) > 0 {
		sb.WriteString("\nImages:\n")
		for _, img := range r.Images {
			sb.WriteString(img + "\n")
		}
	}

	fmt.Fprintf(sb, "\n---\nEstimated tokens: %d\n", extract.EstimateTokens(r.Result.RawContent))
}

func handleScrapePage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := &scrapeRequest{
			URLs:          []string{url},
			Query:         request.GetString("query", ""),
			ContentFormat: request.GetString("format", ""),
		}

		args := request.GetArguments()
		if v, ok := args["include_images"].(bool); ok {
			reqBody.IncludeImages = v
		}
		if v, ok := args["browser_enabled"].(bool); ok {
			reqBody.BrowserEnabled = v
		}

		resp, err := callScrapeAPI(ctx, client, apiURL, apiKey, reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape failed: %v", err)), nil
		}
		if len(resp.Results) == 0 {
			return mcp.NewToolResultError("scrape returned no results"), nil
		}

		var sb strings.Builder
		writeResult(&sb, &resp.Results[0], reqBody.Query != "")
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleScrapeBatch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		reqBody := &scrapeRequest{
			URLs:          urls,
			Query:         request.GetString("query", ""),
			ContentFormat: request.GetString("format", ""),
		}

		resp, err := callScrapeAPI(ctx, client, apiURL, apiKey, reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch scrape failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Scraped %d pages\n\n", len(resp.Results))
		for i := range resp.Results {
			fmt.Fprintf(&sb, "=== [%d/%d] ===\n", i+1, len(resp.Results))
			writeResult(&sb, &resp.Results[i], reqBody.Query != "")
			sb.WriteString("\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
