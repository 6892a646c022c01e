// Package retriever runs the retrieve-and-rank half of the pipeline: embed
// the query and user context, search the vector index, score every candidate
// with the neural ranker and return the top attractions by PEAR score.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/embedding"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/ranker"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/vectorindex"
)

// DefaultTopK is how many ranked attractions a request returns by default.
const DefaultTopK = 30

// DefaultSearchLimit is how many candidates the vector search considers
// before neural re-ranking.
const DefaultSearchLimit = 100

// neutralScore is assigned when ranking a single candidate fails.
const neutralScore = 0.5

// ErrNoCandidates is returned when the vector search yields nothing.
var ErrNoCandidates = errors.New("no attractions found")

// Index is the slice of the vector index the retriever needs.
type Index interface {
	Search(ctx context.Context, vector []float64, limit int, filters ...vectorindex.Filter) ([]vectorindex.Hit, error)
}

// Retriever wires the embedder, vector index and ranker together.
type Retriever struct {
	embedder    embedding.Embedder
	index       Index
	ranker      *ranker.Ranker
	searchLimit int
}

// New builds a retriever. searchLimit caps the vector search candidate pool;
// zero means the default of 100.
func New(embedder embedding.Embedder, index Index, rk *ranker.Ranker, searchLimit int) *Retriever {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Retriever{
		embedder:    embedder,
		index:       index,
		ranker:      rk,
		searchLimit: searchLimit,
	}
}

// Recommend returns the topK attractions for a query, ranked by PEAR score
// descending. Embedder and index failures fail the whole request; a ranking
// failure on a single candidate assigns the neutral score and continues.
func (r *Retriever) Recommend(ctx context.Context, query string, uc core.UserContext, topK int) ([]core.Attraction, error) {
	return r.recommend(ctx, query, uc, topK)
}

// RecommendByCategory restricts the candidate pool to one payload category.
func (r *Retriever) RecommendByCategory(ctx context.Context, query string, uc core.UserContext, topK int, category string) ([]core.Attraction, error) {
	return r.recommend(ctx, query, uc, topK, vectorindex.Filter{Key: "category", Value: category})
}

// RecommendByRegion restricts the candidate pool to one payload region.
func (r *Retriever) RecommendByRegion(ctx context.Context, query string, uc core.UserContext, topK int, region string) ([]core.Attraction, error) {
	return r.recommend(ctx, query, uc, topK, vectorindex.Filter{Key: "region", Value: region})
}

func (r *Retriever) recommend(ctx context.Context, query string, uc core.UserContext, topK int, filters ...vectorindex.Filter) ([]core.Attraction, error) {
	if query == "" {
		query = QueryFromInterests(uc.Interests)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryEmbed, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	contextEmbed, err := r.embedder.Embed(ctx, ContextText(uc))
	if err != nil {
		return nil, fmt.Errorf("failed to embed user context: %w", err)
	}

	hits, err := r.index.Search(ctx, queryEmbed, r.searchLimit, filters...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrNoCandidates
	}
	logger.Info("retrieved candidates from vector index", "count", len(hits))

	attractions := make([]core.Attraction, 0, len(hits))
	for _, hit := range hits {
		a := attractionFromHit(hit)

		neural, err := r.ranker.Score(queryEmbed, contextEmbed, hit.Vector)
		if err != nil {
			logger.Warn("failed to rank candidate, using neutral score", "id", hit.ID, "error", err)
			a.NeuralScore = neutralScore
			a.PearScore = neutralScore
		} else {
			a.NeuralScore = neural
			a.PearScore = r.ranker.PEARScore(neural, hit.Score)
		}
		attractions = append(attractions, a)
	}

	sort.SliceStable(attractions, func(i, j int) bool {
		return attractions[i].PearScore > attractions[j].PearScore
	})
	if len(attractions) > topK {
		attractions = attractions[:topK]
	}
	return attractions, nil
}

func attractionFromHit(hit vectorindex.Hit) core.Attraction {
	a := core.Attraction{
		ID:              hit.ID,
		Name:            payloadString(hit.Payload, "name", "Unknown"),
		Category:        payloadString(hit.Payload, "category", "Unknown"),
		Description:     payloadString(hit.Payload, "description", ""),
		Region:          payloadString(hit.Payload, "region", "Unknown"),
		SimilarityScore: hit.Score,
	}
	if v, ok := payloadNumber(hit.Payload, "visit_duration_minutes"); ok && v > 0 {
		a.VisitDurationMinutes = int(v)
	}
	return a
}

func payloadString(payload map[string]any, key, fallback string) string {
	if payload == nil {
		return fallback
	}
	if s, ok := payload[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func payloadNumber(payload map[string]any, key string) (float64, bool) {
	if payload == nil {
		return 0, false
	}
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// ContextText renders a user context as the sentence fed to the embedder.
// Unset fields are omitted; an empty context becomes a generic sentence.
func ContextText(uc core.UserContext) string {
	var parts []string

	if len(uc.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(uc.Interests, ", "))
	}
	if uc.TripType != "" {
		parts = append(parts, "Trip type: "+uc.TripType)
	}
	if uc.Budget != "" {
		parts = append(parts, "Budget: "+uc.Budget)
	}
	if uc.DurationDays > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %d days", uc.DurationDays))
	}
	if uc.GroupSize > 0 {
		parts = append(parts, fmt.Sprintf("Group size: %d", uc.GroupSize))
	}
	if phrase := levelPhrase(uc.CulturalInterest, "cultural interest"); phrase != "" {
		parts = append(parts, phrase)
	}
	if phrase := levelPhrase(uc.AdventureLevel, "adventure preference"); phrase != "" {
		parts = append(parts, phrase)
	}
	if phrase := levelPhrase(uc.NatureAppreciation, "nature appreciation"); phrase != "" {
		parts = append(parts, phrase)
	}

	if len(parts) == 0 {
		return "General travel preferences"
	}
	return strings.Join(parts, ". ")
}

func levelPhrase(level int, noun string) string {
	switch {
	case level > 7:
		return "High " + noun
	case level > 4:
		return "Moderate " + noun
	default:
		return ""
	}
}

// QueryFromInterests builds a search query when the caller supplies none.
func QueryFromInterests(interests []string) string {
	if len(interests) == 0 {
		return "interesting places to visit in Sri Lanka"
	}
	return "I want to visit places related to " + strings.Join(interests, " ") + " in Sri Lanka"
}
