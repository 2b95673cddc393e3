package score

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/use-agent/harvest/llm"
)

// maxEmbedRunes bounds the text sent to the embedding API. Page text
// beyond this adds cost without moving the similarity much.
const maxEmbedRunes = 8000

// Embedding scores with vector embeddings from an OpenAI-compatible
// API. When the API call fails it falls back to lexical scoring so a
// provider outage never fails a scrape.
type Embedding struct {
	client   *llm.Client
	fallback Lexical
}

// NewEmbedding creates an embedding scorer backed by the given client.
func NewEmbedding(client *llm.Client) *Embedding {
	return &Embedding{client: client}
}

// Score embeds query and text and returns their cosine similarity
// clamped to [0, 1], rounded to 8 decimal places. Empty query or text
// scores 0 without an API call.
func (e *Embedding) Score(ctx context.Context, text, query string) float64 {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(text) == "" {
		return 0
	}
	if runes := []rune(text); len(runes) > maxEmbedRunes {
		text = string(runes[:maxEmbedRunes])
	}

	vectors, err := e.client.Embed(ctx, []string{query, text})
	if err != nil {
		slog.Warn("embedding scorer unavailable, falling back to lexical", "error", err)
		return e.fallback.Score(ctx, text, query)
	}

	sim := cosine(vectors[0], vectors[1])
	if sim < 0 {
		sim = 0
	} else if sim > 1 {
		sim = 1
	}
	return Round8(sim)
}

// cosine returns the cosine similarity of two vectors, 0 when either
// has zero norm or the dimensions disagree.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
