package clustering

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/routing"
)

func testConfig() config.Clustering {
	return config.Clustering{
		MaxClusterRadiusKm: 40.0,
		MinPerCluster:      2,
		MaxPerCluster:      4,
		DistanceWeight:     0.7,
		DefaultAlgorithm:   AlgorithmSmart,
	}
}

func newTestClusterer() *Clusterer {
	return New(testConfig(), routing.HaversineProvider{}, 4)
}

func attraction(id, name string, lat, lng, pear float64) core.Attraction {
	return core.Attraction{
		ID:                   id,
		Name:                 name,
		Latitude:             core.Float64Ptr(lat),
		Longitude:            core.Float64Ptr(lng),
		PearScore:            pear,
		VisitDurationMinutes: 120,
	}
}

func TestSingletonCluster(t *testing.T) {
	c := newTestClusterer()
	attractions := []core.Attraction{attraction("a1", "Sigiriya Rock Fortress", 7.9568, 80.7604, 0.9)}

	clusters, usedReal, err := c.CreateBalancedClusters(context.Background(), attractions, Options{Algorithm: AlgorithmSmart, TargetClusters: 1})
	if err != nil {
		t.Fatalf("CreateBalancedClusters failed: %v", err)
	}
	if usedReal {
		t.Error("haversine provider must not report real routing")
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	cl := clusters[0]
	if cl.Size() != 1 {
		t.Errorf("cluster size = %d, want 1", cl.Size())
	}
	if len(cl.OptimalOrder) != 1 || cl.OptimalOrder[0] != 0 {
		t.Errorf("optimal order = %v, want [0]", cl.OptimalOrder)
	}
	if cl.TotalTravelTimeMinutes != 0 {
		t.Errorf("travel time = %v, want 0", cl.TotalTravelTimeMinutes)
	}
}

func TestTwoNearbySites(t *testing.T) {
	c := newTestClusterer()
	attractions := []core.Attraction{
		attraction("a1", "Sigiriya Rock Fortress", 7.9568, 80.7604, 0.9),
		attraction("a2", "Dambulla Cave Temple", 7.8567, 80.6492, 0.8),
	}

	clusters, _, err := c.CreateBalancedClusters(context.Background(), attractions, Options{Algorithm: AlgorithmSmart, TargetClusters: 1})
	if err != nil {
		t.Fatalf("CreateBalancedClusters failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	cl := clusters[0]
	if cl.Size() != 2 {
		t.Fatalf("cluster size = %d, want 2", cl.Size())
	}
	if len(cl.OptimalOrder) != 2 || cl.OptimalOrder[0] != 0 || cl.OptimalOrder[1] != 1 {
		t.Errorf("optimal order = %v, want [0 1]", cl.OptimalOrder)
	}
	// Sigiriya to Dambulla is about 16.8 km.
	if cl.MaxTravelDistanceKm < 15 || cl.MaxTravelDistanceKm > 19 {
		t.Errorf("max travel distance = %v km, want about 16.8", cl.MaxTravelDistanceKm)
	}
	if cl.RegionName != "Central Province" {
		t.Errorf("region = %q, want Central Province", cl.RegionName)
	}
}

func TestCentralProvinceSplit(t *testing.T) {
	c := newTestClusterer()
	attractions := []core.Attraction{
		attraction("a1", "Sigiriya Rock Fortress", 7.9568, 80.7604, 0.9),
		attraction("a2", "Dambulla Cave Temple", 7.8567, 80.6492, 0.85),
		attraction("a3", "Temple of the Sacred Tooth Relic", 7.2936, 80.6350, 0.8),
	}

	clusters, _, err := c.CreateBalancedClusters(context.Background(), attractions, Options{Algorithm: AlgorithmDBSCAN, TargetClusters: 2})
	if err != nil {
		t.Fatalf("CreateBalancedClusters failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}

	// Sigiriya and Dambulla are under 20 km apart, the Tooth Temple is over
	// 60 km south of both.
	sizes := []int{clusters[0].Size(), clusters[1].Size()}
	sort.Ints(sizes)
	if sizes[0] != 1 || sizes[1] != 2 {
		t.Errorf("cluster sizes = %v, want [1 2]", sizes)
	}
	for _, cl := range clusters {
		if cl.RegionName != "Central Province" {
			t.Errorf("region = %q, want Central Province", cl.RegionName)
		}
	}
}

func TestOversizedClusterSplit(t *testing.T) {
	c := newTestClusterer()

	// Eight attractions inside a tight 10 km box, descending pear scores.
	var attractions []core.Attraction
	scores := []float64{0.95, 0.9, 0.85, 0.8, 0.75, 0.7, 0.65, 0.6}
	for i, s := range scores {
		lat := 7.95 + float64(i)*0.01
		attractions = append(attractions, attraction(
			string(rune('a'+i)), "Site", lat, 80.76, s))
	}

	clusters, _, err := c.CreateBalancedClusters(context.Background(), attractions, Options{Algorithm: AlgorithmSmart, TargetClusters: 1})
	if err != nil {
		t.Fatalf("CreateBalancedClusters failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2 after splitting", len(clusters))
	}
	var pearSums []float64
	for _, cl := range clusters {
		if cl.Size() != 4 {
			t.Errorf("cluster size = %d, want 4", cl.Size())
		}
		pearSums = append(pearSums, cl.TotalPearScore)
	}
	// Round-robin distribution keeps the per-cluster totals close.
	if math.Abs(pearSums[0]-pearSums[1]) > 0.95-0.6+1e-9 {
		t.Errorf("pear sums %v differ too much for round-robin split", pearSums)
	}
}

func TestMembershipDisjointAndSizeBounds(t *testing.T) {
	c := newTestClusterer()
	var attractions []core.Attraction
	coords := [][2]float64{
		{7.9568, 80.7604}, {7.8567, 80.6492}, {7.2936, 80.6350},
		{6.0257, 80.2168}, {5.9467, 80.4682}, {6.8570, 81.0462},
		{6.8766, 81.0609}, {6.9497, 80.7891}, {7.9403, 81.0188},
		{8.3114, 80.4037},
	}
	for i, cc := range coords {
		attractions = append(attractions, attraction(
			string(rune('a'+i)), "Site", cc[0], cc[1], 0.5+float64(i)*0.04))
	}

	clusters, _, err := c.CreateBalancedClusters(context.Background(), attractions, Options{Algorithm: AlgorithmSmart, TargetClusters: 4})
	if err != nil {
		t.Fatalf("CreateBalancedClusters failed: %v", err)
	}

	seen := make(map[string]int)
	for _, cl := range clusters {
		if cl.Size() > c.maxPerCluster+2 {
			t.Errorf("cluster %d size %d exceeds max+2", cl.ClusterID, cl.Size())
		}
		for _, a := range cl.Attractions {
			seen[a.ID]++
		}
		// Order must be a permutation of the member indices.
		if len(cl.OptimalOrder) != cl.Size() {
			t.Fatalf("cluster %d order length %d, size %d", cl.ClusterID, len(cl.OptimalOrder), cl.Size())
		}
		perm := append([]int(nil), cl.OptimalOrder...)
		sort.Ints(perm)
		for i, v := range perm {
			if v != i {
				t.Fatalf("cluster %d order %v is not a permutation", cl.ClusterID, cl.OptimalOrder)
			}
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("attraction %s appears %d times across clusters", id, count)
		}
	}
	if len(seen) != len(attractions) {
		t.Errorf("%d of %d attractions assigned", len(seen), len(attractions))
	}
}

func TestDropsAttractionsWithoutCoordinates(t *testing.T) {
	c := newTestClusterer()
	attractions := []core.Attraction{
		attraction("a1", "Sigiriya Rock Fortress", 7.9568, 80.7604, 0.9),
		{ID: "a2", Name: "Unknown Place", PearScore: 0.8, VisitDurationMinutes: 120},
	}

	clusters, _, err := c.CreateBalancedClusters(context.Background(), attractions, Options{Algorithm: AlgorithmSmart, TargetClusters: 1})
	if err != nil {
		t.Fatalf("CreateBalancedClusters failed: %v", err)
	}
	for _, cl := range clusters {
		for _, a := range cl.Attractions {
			if !a.HasCoordinates() {
				t.Errorf("attraction %s without coordinates made it into a cluster", a.ID)
			}
		}
	}
}

func TestGreedyTourFirstHop(t *testing.T) {
	c := newTestClusterer()
	// Four sites on a line: nearest to index 0 is index 1.
	attractions := []core.Attraction{
		attraction("a1", "A", 7.90, 80.70, 0.9),
		attraction("a2", "B", 7.95, 80.70, 0.9),
		attraction("a3", "C", 8.05, 80.70, 0.9),
		attraction("a4", "D", 8.20, 80.70, 0.9),
	}

	clusters, _, err := c.CreateBalancedClusters(context.Background(), attractions, Options{Algorithm: AlgorithmSmart, TargetClusters: 1})
	if err != nil {
		t.Fatalf("CreateBalancedClusters failed: %v", err)
	}
	for _, cl := range clusters {
		if cl.Size() < 3 {
			continue
		}
		if cl.OptimalOrder[0] != 0 {
			t.Errorf("tour must start at index 0, got %v", cl.OptimalOrder)
		}
	}
}

func TestRankClustersByValue(t *testing.T) {
	c := newTestClusterer()

	low := newCluster(0, []core.Attraction{
		attraction("a1", "A", 7.90, 80.70, 0.2),
		attraction("a2", "B", 7.91, 80.70, 0.2),
	}, 2, 4)
	high := newCluster(1, []core.Attraction{
		attraction("b1", "C", 6.02, 80.21, 0.95),
		attraction("b2", "D", 6.03, 80.22, 0.95),
	}, 2, 4)

	ranked := c.RankClustersByValue([]core.GeoCluster{low, high})
	if ranked[0].ClusterID != 1 {
		t.Errorf("highest-value cluster must rank first, got cluster %d", ranked[0].ClusterID)
	}
}

func TestRegionNames(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     string
	}{
		{9.6615, 80.0255, "Northern Province"},
		{8.4567, 79.9, "North Western Province"},
		{7.6, 80.0, "Western Province"},
		{7.6, 81.3, "Eastern Province"},
		{7.29, 80.63, "Central Province"},
		{6.03, 80.22, "Southern Province"},
		{6.4, 81.3, "Uva Province"},
		{6.5, 80.4, "Sabaragamuwa Province"},
	}
	for _, tt := range tests {
		if got := RegionName(tt.lat, tt.lng); got != tt.want {
			t.Errorf("RegionName(%v, %v) = %q, want %q", tt.lat, tt.lng, got, tt.want)
		}
	}
}

func TestPreferenceTravelHours(t *testing.T) {
	if h := PreferenceTravelHours(PreferenceMinimal); h != 2.0 {
		t.Errorf("minimal = %v, want 2.0", h)
	}
	if h := PreferenceTravelHours(PreferenceBalanced); h != 3.0 {
		t.Errorf("balanced = %v, want 3.0", h)
	}
	if h := PreferenceTravelHours(PreferenceExtensive); h != 4.5 {
		t.Errorf("extensive = %v, want 4.5", h)
	}
	if h := PreferenceTravelHours("unknown"); h != 3.0 {
		t.Errorf("unknown = %v, want 3.0 default", h)
	}
}

func TestKMeansDeterministic(t *testing.T) {
	vectors := [][]float64{
		{0, 0}, {0.1, 0}, {10, 10}, {10.1, 10}, {20, 0}, {20.1, 0},
	}
	first := runKMeans(vectors, 3)
	second := runKMeans(vectors, 3)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("k-means not deterministic: %v vs %v", first, second)
		}
	}
}
