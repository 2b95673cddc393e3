package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/harvest/models"
)

// Client is a lightweight client for OpenAI-compatible embedding
// endpoints. It uses net/http directly — no third-party SDK needed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates an embeddings client for the given endpoint.
// Pass a nil httpClient to use a default one.
func NewClient(httpClient *http.Client, baseURL, apiKey, model string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// embedRequest is the OpenAI embeddings request body.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the minimal embeddings response we need.
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// embedErrorResponse captures an API error from the provider.
type embedErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Embed returns one embedding vector per input, in input order.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	reqBody := embedRequest{
		Model: c.model,
		Input: inputs,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/embeddings"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewFetchError(models.ErrCodeEmbedFailure, "embedding request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewFetchError(models.ErrCodeEmbedFailure, "failed to read embedding response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyEmbedError(resp.StatusCode, respBody)
	}

	var embedResp embedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, models.NewFetchError(models.ErrCodeEmbedFailure, "failed to parse embedding response", err)
	}

	if len(embedResp.Data) != len(inputs) {
		return nil, models.NewFetchError(models.ErrCodeEmbedFailure,
			fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(embedResp.Data)), nil)
	}

	// Place vectors by index: providers return them ordered, but the
	// index field is the contract.
	vectors := make([][]float64, len(inputs))
	for _, d := range embedResp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, models.NewFetchError(models.ErrCodeEmbedFailure,
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

// classifyEmbedError maps HTTP status codes to appropriate error codes.
func classifyEmbedError(statusCode int, body []byte) *models.FetchError {
	var errResp embedErrorResponse
	msg := "embedding API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewFetchError(models.ErrCodeEmbedAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewFetchError(models.ErrCodeEmbedRateLimited, msg, nil)
	default:
		return models.NewFetchError(models.ErrCodeEmbedFailure,
			fmt.Sprintf("embedding API returned %d: %s", statusCode, msg), nil)
	}
}
