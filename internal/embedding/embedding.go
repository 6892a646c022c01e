// Package embedding turns free text into dense vectors using Gemini's
// embedding models. The planner embeds the user query and context once per
// request, so latency matters more than throughput here.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

// ErrEmptyText is returned when there is nothing to embed.
var ErrEmptyText = errors.New("cannot embed empty text")

// Embedder produces a fixed-dimension vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// GeminiEmbedder is the production Embedder backed by the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	dims   int
}

// NewGemini creates an embedder from the embedding configuration. The API
// key is required; everything else falls back to defaults.
func NewGemini(ctx context.Context, cfg config.Embedding) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or embedding.api_key in config file")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Debug("embedder initialized", "model", modelName, "dimensions", cfg.Dimensions)
	return &GeminiEmbedder{
		client: client,
		model:  client.EmbeddingModel(modelName),
		dims:   cfg.Dimensions,
	}, nil
}

// Embed returns the embedding vector for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding values returned from API")
	}

	values := resp.Embedding.Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	if e.dims > 0 && len(out) != e.dims {
		logger.Warn("embedding dimension mismatch", "expected", e.dims, "got", len(out))
	}
	return out, nil
}

// Dimensions returns the configured embedding dimensionality.
func (e *GeminiEmbedder) Dimensions() int { return e.dims }

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error { return e.client.Close() }

// CosineSimilarity calculates the cosine similarity between two vectors.
// Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
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
