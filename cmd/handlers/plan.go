package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/clustering"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/embedding"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/gazetteer"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/planner"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/ranker"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/retriever"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/routing"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/vectorindex"
)

// NewPlanCmd creates the plan command.
func NewPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan [query]",
		Short: "Generate a multi-day itinerary for a query",
		Long: `Generate a personalized multi-day itinerary. The plan is printed to
stdout as JSON; logs go to stderr.

Examples:
  exploresl plan "cultural temples and ancient heritage" --days 5
  exploresl plan "beaches and surfing" --days 3 --travel-preference minimal
  exploresl plan --interests culture,temples,history --days 5 --algorithm smart`,
		Args: cobra.MaximumNArgs(1),
		RunE: planRunFunc,
	}

	planCmd.Flags().Int("days", 0, "Number of itinerary days (default from profile, else 3)")
	planCmd.Flags().Int("top-k", retriever.DefaultTopK, "How many ranked attractions to consider")
	planCmd.Flags().String("algorithm", clustering.AlgorithmSmart, "Clustering algorithm: smart, kmeans, dbscan")
	planCmd.Flags().String("travel-preference", clustering.PreferenceBalanced, "Daily travel budget: minimal, balanced, extensive")

	planCmd.Flags().StringSlice("interests", nil, "Traveler interests (comma separated)")
	planCmd.Flags().String("trip-type", "", "Trip type, e.g. family, solo, honeymoon")
	planCmd.Flags().String("budget", "", "Budget level, e.g. low, medium, high")
	planCmd.Flags().Int("group-size", 0, "Number of travelers")
	planCmd.Flags().Int("cultural-interest", 0, "Cultural interest level 1-10")
	planCmd.Flags().Int("adventure-level", 0, "Adventure level 1-10")
	planCmd.Flags().Int("nature-appreciation", 0, "Nature appreciation level 1-10")

	return planCmd
}

func planRunFunc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	query := ""
	if len(args) > 0 {
		query = strings.TrimSpace(args[0])
	}
	interests, _ := cmd.Flags().GetStringSlice("interests")
	if query == "" && len(interests) == 0 {
		return fmt.Errorf("a query argument or --interests is required")
	}

	days, _ := cmd.Flags().GetInt("days")
	topK, _ := cmd.Flags().GetInt("top-k")
	algorithm, _ := cmd.Flags().GetString("algorithm")
	preference, _ := cmd.Flags().GetString("travel-preference")
	tripType, _ := cmd.Flags().GetString("trip-type")
	budget, _ := cmd.Flags().GetString("budget")
	groupSize, _ := cmd.Flags().GetInt("group-size")
	cultural, _ := cmd.Flags().GetInt("cultural-interest")
	adventure, _ := cmd.Flags().GetInt("adventure-level")
	nature, _ := cmd.Flags().GetInt("nature-appreciation")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, cleanup, err := buildPlanner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := p.Plan(ctx, planner.Request{
		Query: query,
		UserContext: core.UserContext{
			Interests:          interests,
			TripType:           tripType,
			Budget:             budget,
			DurationDays:       days,
			GroupSize:          groupSize,
			CulturalInterest:   cultural,
			AdventureLevel:     adventure,
			NatureAppreciation: nature,
		},
		TotalDays:        days,
		TopK:             topK,
		Algorithm:        algorithm,
		TravelPreference: preference,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// buildPlanner wires the full pipeline from configuration. The gazetteer is
// mandatory: a missing locations file is a startup failure.
func buildPlanner(ctx context.Context, cfg *config.Config) (*planner.Planner, func(), error) {
	embedder, err := embedding.NewGemini(ctx, cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := embedder.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing embedder: %v\n", err)
		}
	}

	index := vectorindex.New(cfg.VectorIndex)

	dims := embedder.Dimensions()
	if dims <= 0 {
		dims = cfg.Embedding.Dimensions
	}
	rk, err := ranker.New(dims, cfg.Ranker)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	gaz, err := gazetteer.Load(cfg.Gazetteer.FilePath, cfg.Gazetteer.FuzzyThreshold)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load gazetteer: %w", err)
	}

	rec := retriever.New(embedder, index, rk, cfg.VectorIndex.SearchLimit)
	provider := routing.NewProvider(cfg.Routing)
	clusterer := clustering.New(cfg.Clustering, provider, cfg.Routing.MaxConcurrency)

	return planner.New(rec, gaz, clusterer), cleanup, nil
}
