// Package planner assembles the full itinerary pipeline: retrieve and rank
// attractions, resolve their coordinates, cluster them into day-sized
// groups, order each day's visits and emit the plan response.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/clustering"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/gazetteer"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/geo"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
)

// DefaultTotalDays is used when a request does not specify a duration.
const DefaultTotalDays = 3

// Travel optimization labels reported in overall stats.
const (
	TravelOptimizationRouted   = "openrouteservice"
	TravelOptimizationFallback = "haversine_fallback"
)

// ErrInvalidRequest covers client-side validation failures.
var ErrInvalidRequest = errors.New("invalid plan request")

// ErrNoAttractions means no retrieved attraction survived coordinate
// resolution, so there is nothing to plan.
var ErrNoAttractions = errors.New("no attractions found")

// Request is one itinerary planning request.
type Request struct {
	Query            string           `json:"query"`
	UserContext      core.UserContext `json:"user_context"`
	TotalDays        int              `json:"total_days"`
	TopK             int              `json:"top_k"`
	Algorithm        string           `json:"algorithm"`
	TravelPreference string           `json:"travel_preference"`
}

// Recommender is the retrieval half of the pipeline.
type Recommender interface {
	Recommend(ctx context.Context, query string, uc core.UserContext, topK int) ([]core.Attraction, error)
}

// Planner orchestrates a plan request end to end.
type Planner struct {
	recommender Recommender
	gaz         *gazetteer.Gazetteer
	clusterer   *clustering.Clusterer
}

// New builds a planner from its three stages.
func New(recommender Recommender, gaz *gazetteer.Gazetteer, clusterer *clustering.Clusterer) *Planner {
	return &Planner{recommender: recommender, gaz: gaz, clusterer: clusterer}
}

// Plan runs the full pipeline for one request.
func (p *Planner) Plan(ctx context.Context, req Request) (*core.PlanResponse, error) {
	start := time.Now()

	if err := validate(&req); err != nil {
		return nil, err
	}

	attractions, err := p.recommender.Recommend(ctx, req.Query, req.UserContext, req.TopK)
	if err != nil {
		return nil, err
	}

	resolved := p.resolveCoordinates(attractions)
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w with known coordinates for query %q", ErrNoAttractions, req.Query)
	}
	logger.Info("resolved attraction coordinates",
		"retrieved", len(attractions), "resolved", len(resolved))

	clusters, usedReal, err := p.clusterer.CreateBalancedClusters(ctx, resolved, clustering.Options{
		Algorithm:      req.Algorithm,
		TargetClusters: req.TotalDays,
	})
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}
	if len(clusters) == 0 {
		return nil, fmt.Errorf("%w with known coordinates for query %q", ErrNoAttractions, req.Query)
	}

	ranked := p.clusterer.RankClustersByValue(clusters)
	selected := selectDayClusters(ranked, req.TotalDays, req.TravelPreference)

	resp := p.buildResponse(req, selected, usedReal)
	resp.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	logger.Info("plan generated",
		"plan_id", resp.PlanID, "days", len(resp.DailyItineraries),
		"attractions", resp.TotalAttractions, "processing_ms", resp.ProcessingTimeMs)
	return resp, nil
}

func validate(req *Request) error {
	if req.Query == "" && len(req.UserContext.Interests) == 0 {
		return fmt.Errorf("%w: query or interests required", ErrInvalidRequest)
	}
	if req.TotalDays < 0 {
		return fmt.Errorf("%w: total_days cannot be negative", ErrInvalidRequest)
	}
	if req.TotalDays == 0 {
		if req.UserContext.DurationDays > 0 {
			req.TotalDays = req.UserContext.DurationDays
		} else {
			req.TotalDays = DefaultTotalDays
		}
	}
	return nil
}

// resolveCoordinates attaches gazetteer coordinates to each attraction.
// Unresolvable names are dropped; the island-centroid fallback is never
// planted into an itinerary.
func (p *Planner) resolveCoordinates(attractions []core.Attraction) []core.Attraction {
	resolved := make([]core.Attraction, 0, len(attractions))
	for _, a := range attractions {
		res, err := p.gaz.Resolve(a.Name)
		if err != nil {
			logger.Warn("dropping attraction without coordinates", "name", a.Name)
			continue
		}
		a.Latitude = core.Float64Ptr(res.Latitude)
		a.Longitude = core.Float64Ptr(res.Longitude)
		a.CoordinateSource = res.Source
		if a.VisitDurationMinutes <= 0 && res.Entry != nil {
			a.VisitDurationMinutes = res.Entry.VisitDurationMinutes
		}
		if a.VisitDurationMinutes <= 0 {
			a.VisitDurationMinutes = 120
		}
		resolved = append(resolved, a)
	}
	return resolved
}

// selectDayClusters picks the top clusters for the trip, preferring clusters
// whose travel time fits the daily travel budget. When too few clusters fit
// the budget, the best over-budget ones fill the remaining days.
func selectDayClusters(ranked []core.GeoCluster, days int, preference string) []core.GeoCluster {
	budgetMinutes := clustering.PreferenceTravelHours(preference) * 60

	within := make([]core.GeoCluster, 0, len(ranked))
	var over []core.GeoCluster
	for _, c := range ranked {
		if c.TotalTravelTimeMinutes <= budgetMinutes {
			within = append(within, c)
		} else {
			over = append(over, c)
		}
	}

	selected := within
	if len(selected) > days {
		selected = selected[:days]
	}
	for _, c := range over {
		if len(selected) >= days {
			break
		}
		logger.Warn("day cluster exceeds travel budget",
			"cluster_id", c.ClusterID, "travel_minutes", c.TotalTravelTimeMinutes, "budget_minutes", budgetMinutes)
		selected = append(selected, c)
	}
	return selected
}

func (p *Planner) buildResponse(req Request, selected []core.GeoCluster, usedReal bool) *core.PlanResponse {
	resp := &core.PlanResponse{
		PlanID:    uuid.NewString(),
		Query:     req.Query,
		TotalDays: req.TotalDays,
	}

	var totalTravelKm, totalValueRate float64
	balanced := 0

	for day, cluster := range selected {
		itinerary := buildDayItinerary(day+1, cluster)
		resp.DailyItineraries = append(resp.DailyItineraries, itinerary)
		resp.TotalAttractions += len(itinerary.Attractions)
		totalTravelKm += itinerary.TotalTravelDistanceKm
		totalValueRate += cluster.ValuePerHour
		if cluster.IsBalanced {
			balanced++
		}
	}

	optimization := TravelOptimizationFallback
	if usedReal {
		optimization = TravelOptimizationRouted
	}
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = clustering.AlgorithmSmart
	}

	resp.OverallStats = core.OverallStats{
		TotalAttractions:    resp.TotalAttractions,
		TotalTravelKm:       totalTravelKm,
		BalancedClusters:    balanced,
		TravelOptimization:  optimization,
		ClusteringAlgorithm: algorithm,
	}
	if len(selected) > 0 {
		resp.OverallStats.AverageValuePerHour = totalValueRate / float64(len(selected))
	}
	return resp
}

func buildDayItinerary(day int, cluster core.GeoCluster) core.DayItinerary {
	ordered := cluster.OrderedAttractions()

	infos := make([]core.AttractionInfo, 0, len(ordered))
	for i, a := range ordered {
		infos = append(infos, core.AttractionInfo{
			ID:          a.ID,
			Name:        a.Name,
			Category:    a.Category,
			Description: a.Description,
			Region:      a.Region,
			Latitude:    a.Latitude,
			Longitude:   a.Longitude,
			PearScore:   a.PearScore,
			VisitOrder:  i + 1,
		})
	}

	var travelKm float64
	for i := 0; i+1 < len(ordered); i++ {
		fromLat, fromLng := ordered[i].Coords()
		toLat, toLng := ordered[i+1].Coords()
		travelKm += geo.Haversine(fromLat, fromLng, toLat, toLng)
	}

	return core.DayItinerary{
		Day: day,
		ClusterInfo: core.ClusterInfo{
			ClusterID:            cluster.ClusterID,
			RegionName:           cluster.RegionName,
			CenterLat:            cluster.CenterLat,
			CenterLng:            cluster.CenterLng,
			TotalAttractions:     cluster.Size(),
			TotalPearScore:       cluster.TotalPearScore,
			EstimatedTimeHours:   cluster.EstimatedTimeHours,
			TravelTimeMinutes:    cluster.TotalTravelTimeMinutes,
			ValuePerHour:         cluster.ValuePerHour,
			IsBalanced:           cluster.IsBalanced,
			OptimalVisitingOrder: cluster.OptimalOrder,
		},
		Attractions:             infos,
		TotalTravelDistanceKm:   travelKm,
		EstimatedTotalTimeHours: cluster.EstimatedTimeHours,
	}
}
