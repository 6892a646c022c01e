package planner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/clustering"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/gazetteer"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/routing"
)

const testLocations = `{
  "sri_lanka_travel_locations": [
    {"name": "Sigiriya Rock Fortress", "latitude": 7.9568, "longitude": 80.7604, "category": "Historical", "region": "Central Province", "visit_duration_minutes": 180},
    {"name": "Dambulla Cave Temple", "latitude": 7.8567, "longitude": 80.6492, "category": "Religious", "region": "Central Province", "visit_duration_minutes": 120},
    {"name": "Temple of the Sacred Tooth Relic", "latitude": 7.2936, "longitude": 80.6350, "category": "Religious", "region": "Central Province", "visit_duration_minutes": 90},
    {"name": "Galle Fort", "latitude": 6.0257, "longitude": 80.2168, "category": "Historical", "region": "Southern Province", "visit_duration_minutes": 150}
  ]
}`

type mockRecommender struct {
	attractions []core.Attraction
	err         error
}

func (m *mockRecommender) Recommend(_ context.Context, _ string, _ core.UserContext, _ int) ([]core.Attraction, error) {
	return m.attractions, m.err
}

func loadGazetteer(t *testing.T) *gazetteer.Gazetteer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.json")
	if err := os.WriteFile(path, []byte(testLocations), 0o644); err != nil {
		t.Fatalf("write locations: %v", err)
	}
	g, err := gazetteer.Load(path, gazetteer.DefaultFuzzyThreshold)
	if err != nil {
		t.Fatalf("gazetteer.Load failed: %v", err)
	}
	return g
}

func newTestPlanner(t *testing.T, rec Recommender) *Planner {
	t.Helper()
	clusterer := clustering.New(config.Clustering{
		MaxClusterRadiusKm: 40,
		MinPerCluster:      2,
		MaxPerCluster:      4,
		DistanceWeight:     0.7,
	}, routing.HaversineProvider{}, 4)
	return New(rec, loadGazetteer(t), clusterer)
}

func candidate(id, name string, pear float64) core.Attraction {
	return core.Attraction{ID: id, Name: name, PearScore: pear, Category: "Historical", Region: "Central Province"}
}

func TestPlanEndToEnd(t *testing.T) {
	rec := &mockRecommender{attractions: []core.Attraction{
		candidate("a1", "Sigiriya Rock Fortress", 0.9),
		candidate("a2", "Dambulla Cave Temple", 0.85),
		candidate("a3", "Temple of the Sacred Tooth Relic", 0.8),
		candidate("a4", "Galle Fort", 0.75),
	}}
	p := newTestPlanner(t, rec)

	resp, err := p.Plan(context.Background(), Request{
		Query:     "cultural temples and ancient heritage",
		TotalDays: 3,
		Algorithm: clustering.AlgorithmDBSCAN,
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if resp.PlanID == "" {
		t.Error("plan ID must be set")
	}
	if resp.TotalDays != 3 {
		t.Errorf("TotalDays = %d, want 3", resp.TotalDays)
	}
	if len(resp.DailyItineraries) == 0 || len(resp.DailyItineraries) > 3 {
		t.Fatalf("got %d daily itineraries, want 1..3", len(resp.DailyItineraries))
	}

	seen := make(map[string]bool)
	total := 0
	for i, day := range resp.DailyItineraries {
		if day.Day != i+1 {
			t.Errorf("day %d numbered %d", i+1, day.Day)
		}
		if len(day.Attractions) == 0 {
			t.Errorf("day %d has no attractions", day.Day)
		}
		for j, a := range day.Attractions {
			if a.VisitOrder != j+1 {
				t.Errorf("visit order %d at position %d", a.VisitOrder, j)
			}
			if a.Latitude == nil || a.Longitude == nil {
				t.Errorf("attraction %s missing coordinates in final plan", a.ID)
			}
			if seen[a.ID] {
				t.Errorf("attraction %s appears on more than one day", a.ID)
			}
			seen[a.ID] = true
			total++
		}
	}
	if resp.TotalAttractions != total {
		t.Errorf("TotalAttractions = %d, counted %d", resp.TotalAttractions, total)
	}
	if resp.OverallStats.TravelOptimization != TravelOptimizationFallback {
		t.Errorf("travel optimization = %q, want %q",
			resp.OverallStats.TravelOptimization, TravelOptimizationFallback)
	}
	if resp.OverallStats.ClusteringAlgorithm != clustering.AlgorithmDBSCAN {
		t.Errorf("clustering algorithm = %q", resp.OverallStats.ClusteringAlgorithm)
	}
	if resp.ProcessingTimeMs < 0 {
		t.Errorf("processing time = %v", resp.ProcessingTimeMs)
	}
}

func TestPlanDropsUnknownAttractions(t *testing.T) {
	rec := &mockRecommender{attractions: []core.Attraction{
		candidate("a1", "Sigiriya Rock Fortress", 0.9),
		candidate("a2", "Dambulla Cave Temple", 0.8),
		candidate("x1", "Atlantis Underwater Palace", 0.95),
	}}
	p := newTestPlanner(t, rec)

	resp, err := p.Plan(context.Background(), Request{Query: "heritage", TotalDays: 1})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	for _, day := range resp.DailyItineraries {
		for _, a := range day.Attractions {
			if a.ID == "x1" {
				t.Error("unresolvable attraction must be dropped, not planned")
			}
		}
	}
}

func TestPlanAllUnknownFails(t *testing.T) {
	rec := &mockRecommender{attractions: []core.Attraction{
		candidate("x1", "Atlantis Underwater Palace", 0.95),
	}}
	p := newTestPlanner(t, rec)

	if _, err := p.Plan(context.Background(), Request{Query: "heritage", TotalDays: 1}); !errors.Is(err, ErrNoAttractions) {
		t.Fatalf("err = %v, want ErrNoAttractions", err)
	}
}

func TestPlanRecommenderFailurePropagates(t *testing.T) {
	boom := errors.New("index down")
	p := newTestPlanner(t, &mockRecommender{err: boom})

	if _, err := p.Plan(context.Background(), Request{Query: "heritage"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want recommender error", err)
	}
}

func TestPlanValidation(t *testing.T) {
	p := newTestPlanner(t, &mockRecommender{})

	if _, err := p.Plan(context.Background(), Request{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty request err = %v, want ErrInvalidRequest", err)
	}
	if _, err := p.Plan(context.Background(), Request{Query: "x", TotalDays: -1}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("negative days err = %v, want ErrInvalidRequest", err)
	}
}

func TestPlanDefaultsDaysFromContext(t *testing.T) {
	rec := &mockRecommender{attractions: []core.Attraction{
		candidate("a1", "Sigiriya Rock Fortress", 0.9),
		candidate("a2", "Dambulla Cave Temple", 0.8),
	}}
	p := newTestPlanner(t, rec)

	resp, err := p.Plan(context.Background(), Request{
		Query:       "heritage",
		UserContext: core.UserContext{DurationDays: 2},
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if resp.TotalDays != 2 {
		t.Errorf("TotalDays = %d, want 2 from user context", resp.TotalDays)
	}
}

func TestPlanSingleCandidate(t *testing.T) {
	rec := &mockRecommender{attractions: []core.Attraction{
		candidate("a1", "Sigiriya Rock Fortress", 0.9),
	}}
	p := newTestPlanner(t, rec)

	resp, err := p.Plan(context.Background(), Request{Query: "heritage", TotalDays: 1})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(resp.DailyItineraries) != 1 {
		t.Fatalf("got %d days, want 1", len(resp.DailyItineraries))
	}
	day := resp.DailyItineraries[0]
	if len(day.Attractions) != 1 {
		t.Fatalf("got %d attractions, want 1", len(day.Attractions))
	}
	if day.ClusterInfo.TravelTimeMinutes != 0 {
		t.Errorf("singleton travel time = %v, want 0", day.ClusterInfo.TravelTimeMinutes)
	}
	if day.Attractions[0].VisitOrder != 1 {
		t.Errorf("visit order = %d, want 1", day.Attractions[0].VisitOrder)
	}
}
