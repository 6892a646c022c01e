// Package vectorindex is a thin HTTP client for Qdrant's points/search API.
// The planner needs a single similarity search per request, with payloads and
// stored vectors returned alongside the scores, so the full gRPC client would
// be overkill.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
)

// ErrUnavailable is returned when the index cannot be reached or rejects the
// request. Search failures are fatal to a planning request.
var ErrUnavailable = errors.New("vector index unavailable")

// Hit is one search result: the stored point with its similarity score.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
	Vector  []float64
}

// Filter restricts a search to points whose payload field equals a value.
type Filter struct {
	Key   string
	Value string
}

// Client talks to one Qdrant collection.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

// New builds a client from the vector index configuration.
func New(cfg config.VectorIndex) *Client {
	timeout := config.Timeout(cfg.Timeout, 10*time.Second)
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Vector      []float64     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	WithVector  bool          `json:"with_vector"`
	Filter      *searchFilter `json:"filter,omitempty"`
}

type searchFilter struct {
	Must []fieldCondition `json:"must"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value string `json:"value"`
}

type searchResponse struct {
	Result []struct {
		ID      json.RawMessage `json:"id"`
		Score   float64         `json:"score"`
		Payload map[string]any  `json:"payload"`
		Vector  []float64       `json:"vector"`
	} `json:"result"`
	Status json.RawMessage `json:"status"`
}

// Search runs a similarity search and returns hits best-first. Filters are
// combined with AND semantics; pass none for an unrestricted search.
func (c *Client) Search(ctx context.Context, vector []float64, limit int, filters ...Filter) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("search vector is empty")
	}
	if limit <= 0 {
		limit = 10
	}

	reqBody := searchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
		WithVector:  true,
	}
	if len(filters) > 0 {
		f := &searchFilter{}
		for _, flt := range filters {
			f.Must = append(f.Must, fieldCondition{Key: flt.Key, Match: matchValue{Value: flt.Value}})
		}
		reqBody.Filter = f
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error("vector index search failed", nil,
			"status", resp.StatusCode, "collection", c.collection, "body", truncate(string(body), 200))
		return nil, fmt.Errorf("%w: search returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid search response: %v", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		hits = append(hits, Hit{
			ID:      rawIDToString(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
			Vector:  r.Vector,
		})
	}
	logger.Debug("vector search complete", "collection", c.collection, "hits", len(hits), "limit", limit)
	return hits, nil
}

// Qdrant point IDs may be integers or UUID strings on the wire.
func rawIDToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
