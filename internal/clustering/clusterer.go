package clustering

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/geo"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/routing"
)

// Clustering algorithm names.
const (
	AlgorithmSmart  = "smart"
	AlgorithmKMeans = "kmeans"
	AlgorithmDBSCAN = "dbscan"
)

// Travel preference levels and their daily travel budgets in hours.
const (
	PreferenceMinimal   = "minimal"
	PreferenceBalanced  = "balanced"
	PreferenceExtensive = "extensive"
)

// MaxAttractionsConsidered caps how many top-ranked attractions enter
// clustering.
const MaxAttractionsConsidered = 30

// scoreDistanceWeight is how strongly geographic distance counts against
// score similarity when building the smart-clustering similarity matrix.
const defaultScoreDistanceWeight = 0.7

// PreferenceTravelHours maps a travel preference to the maximum daily travel
// budget. Unknown values get the balanced budget.
func PreferenceTravelHours(preference string) float64 {
	switch preference {
	case PreferenceMinimal:
		return 2.0
	case PreferenceExtensive:
		return 4.5
	default:
		return 3.0
	}
}

// Options tune a single clustering run.
type Options struct {
	Algorithm      string
	TargetClusters int
}

// Clusterer builds balanced day clusters from ranked attractions.
type Clusterer struct {
	maxRadiusKm    float64
	minPerCluster  int
	maxPerCluster  int
	distanceWeight float64
	maxConcurrency int
	provider       routing.Provider
}

// New builds a clusterer from the clustering configuration and a route
// provider used for distance matrices and visiting-order optimization.
func New(cfg config.Clustering, provider routing.Provider, maxConcurrency int) *Clusterer {
	c := &Clusterer{
		maxRadiusKm:    cfg.MaxClusterRadiusKm,
		minPerCluster:  cfg.MinPerCluster,
		maxPerCluster:  cfg.MaxPerCluster,
		distanceWeight: cfg.DistanceWeight,
		maxConcurrency: maxConcurrency,
		provider:       provider,
	}
	if c.maxRadiusKm <= 0 {
		c.maxRadiusKm = 40.0
	}
	if c.minPerCluster < 1 {
		c.minPerCluster = 2
	}
	if c.maxPerCluster < c.minPerCluster {
		c.maxPerCluster = c.minPerCluster + 2
	}
	if c.distanceWeight <= 0 {
		c.distanceWeight = defaultScoreDistanceWeight
	}
	return c
}

// CreateBalancedClusters groups the top attractions into balanced day
// clusters and computes the visiting order for each. Attractions without
// coordinates are dropped. Returns clusters with routing usage reported so
// the caller can tell haversine estimates from real driving routes.
func (c *Clusterer) CreateBalancedClusters(ctx context.Context, attractions []core.Attraction, opts Options) ([]core.GeoCluster, bool, error) {
	if len(attractions) > MaxAttractionsConsidered {
		attractions = attractions[:MaxAttractionsConsidered]
	}

	valid := make([]core.Attraction, 0, len(attractions))
	for _, a := range attractions {
		if a.HasCoordinates() {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return nil, false, nil
	}
	if len(valid) < c.minPerCluster {
		single := newCluster(0, valid, c.minPerCluster, c.maxPerCluster)
		clusters, usedReal, err := c.optimizeVisitingOrder(ctx, []core.GeoCluster{single})
		return clusters, usedReal, err
	}

	targetClusters := opts.TargetClusters
	if targetClusters < 1 {
		targetClusters = 1
	}

	logger.Info("creating balanced clusters",
		"attractions", len(valid), "algorithm", opts.Algorithm, "target_clusters", targetClusters)

	matrix, err := c.distanceMatrix(ctx, valid)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build distance matrix: %w", err)
	}
	usedReal := matrix.AnyReal

	var clusters []core.GeoCluster
	switch opts.Algorithm {
	case AlgorithmKMeans:
		clusters = c.kmeansClustering(valid, matrix, targetClusters)
	case AlgorithmDBSCAN:
		clusters = c.dbscanClustering(valid, matrix)
	default:
		clusters = c.smartClustering(valid, matrix, targetClusters)
	}

	clusters = c.optimizeBalance(clusters)

	clusters, orderedReal, err := c.optimizeVisitingOrder(ctx, clusters)
	if err != nil {
		return nil, false, err
	}
	usedReal = usedReal || orderedReal

	logger.Info("clustering complete", "clusters", len(clusters), "algorithm", opts.Algorithm)
	return clusters, usedReal, nil
}

func (c *Clusterer) distanceMatrix(ctx context.Context, attractions []core.Attraction) (*routing.Matrix, error) {
	points := make([]routing.Point, len(attractions))
	for i := range attractions {
		lat, lng := attractions[i].Coords()
		points[i] = routing.Point{Lat: lat, Lng: lng}
	}
	return routing.BuildMatrix(ctx, c.provider, points, c.maxConcurrency)
}

// smartClustering combines PEAR score similarity with a distance penalty and
// runs k-means over the resulting pseudo-distance rows.
func (c *Clusterer) smartClustering(attractions []core.Attraction, matrix *routing.Matrix, targetClusters int) []core.GeoCluster {
	n := len(attractions)

	maxDist := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if d := matrix.Routes[i][j].DistanceKm; d > maxDist {
				maxDist = d
			}
		}
	}
	if maxDist == 0 {
		maxDist = 1
	}

	// similarity = score closeness minus weighted distance penalty; k-means
	// then runs over the rows of (1 - similarity).
	pseudo := make([][]float64, n)
	for i := 0; i < n; i++ {
		pseudo[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			distPenalty := matrix.Routes[i][j].DistanceKm / maxDist
			scoreSim := 1 - math.Abs(attractions[i].PearScore-attractions[j].PearScore)
			pseudo[i][j] = 1 - (scoreSim - c.distanceWeight*distPenalty)
		}
	}

	k := clampClusterCount(targetClusters, n, c.minPerCluster)
	assignments := runKMeans(pseudo, k)
	return c.groupByAssignment(attractions, assignments)
}

// kmeansClustering clusters directly over the distance matrix rows.
func (c *Clusterer) kmeansClustering(attractions []core.Attraction, matrix *routing.Matrix, targetClusters int) []core.GeoCluster {
	n := len(attractions)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = matrix.Routes[i][j].DistanceKm
		}
	}

	k := clampClusterCount(targetClusters, n, c.minPerCluster)
	assignments := runKMeans(rows, k)
	return c.groupByAssignment(attractions, assignments)
}

// dbscanClustering is density-based: eps is the cluster radius, minPts the
// minimum cluster size. Noise points are re-homed or become singletons.
func (c *Clusterer) dbscanClustering(attractions []core.Attraction, matrix *routing.Matrix) []core.GeoCluster {
	n := len(attractions)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -2 // unvisited
	}

	eps := c.maxRadiusKm
	minPts := c.minPerCluster

	neighborsOf := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != i && matrix.Routes[i][j].DistanceKm <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != -2 {
			continue
		}
		neighbors := neighborsOf(i)
		if len(neighbors)+1 < minPts {
			labels[i] = -1 // noise, may be claimed by a cluster later
			continue
		}
		labels[i] = clusterID
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == -1 {
				labels[j] = clusterID
			}
			if labels[j] != -2 {
				continue
			}
			labels[j] = clusterID
			jn := neighborsOf(j)
			if len(jn)+1 >= minPts {
				queue = append(queue, jn...)
			}
		}
		clusterID++
	}

	groups := make(map[int][]core.Attraction)
	var noise []core.Attraction
	for i, label := range labels {
		if label < 0 {
			noise = append(noise, attractions[i])
			continue
		}
		groups[label] = append(groups[label], attractions[i])
	}

	clusters := make([]core.GeoCluster, 0, len(groups))
	for id := 0; id < clusterID; id++ {
		if members := groups[id]; len(members) > 0 {
			clusters = append(clusters, newCluster(len(clusters), members, c.minPerCluster, c.maxPerCluster))
		}
	}

	for _, a := range noise {
		if best := c.findBestCluster(a, clusters); best >= 0 && c.canAdd(a, &clusters[best]) {
			addToCluster(&clusters[best], a, c.minPerCluster, c.maxPerCluster)
			continue
		}
		clusters = append(clusters, newCluster(len(clusters), []core.Attraction{a}, c.minPerCluster, c.maxPerCluster))
	}
	return clusters
}

func (c *Clusterer) groupByAssignment(attractions []core.Attraction, assignments []int) []core.GeoCluster {
	groups := make(map[int][]core.Attraction)
	order := make([]int, 0)
	for i, label := range assignments {
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], attractions[i])
	}
	sort.Ints(order)

	clusters := make([]core.GeoCluster, 0, len(groups))
	for _, label := range order {
		clusters = append(clusters, newCluster(len(clusters), groups[label], c.minPerCluster, c.maxPerCluster))
	}
	return clusters
}

// optimizeBalance splits oversized clusters and re-homes attractions from
// clusters that are too spread out.
func (c *Clusterer) optimizeBalance(clusters []core.GeoCluster) []core.GeoCluster {
	balanced := make([]core.GeoCluster, 0, len(clusters))
	var orphans []core.Attraction

	for _, cluster := range clusters {
		switch {
		case cluster.IsBalanced:
			balanced = append(balanced, cluster)
		case cluster.Size() > c.maxPerCluster:
			balanced = append(balanced, c.splitCluster(cluster)...)
		case cluster.MaxTravelDistanceKm > c.maxRadiusKm:
			orphans = append(orphans, cluster.Attractions...)
		default:
			balanced = append(balanced, cluster)
		}
	}

	for _, a := range orphans {
		if best := c.findBestCluster(a, balanced); best >= 0 && c.canAdd(a, &balanced[best]) {
			addToCluster(&balanced[best], a, c.minPerCluster, c.maxPerCluster)
			continue
		}
		balanced = append(balanced, newCluster(len(balanced), []core.Attraction{a}, c.minPerCluster, c.maxPerCluster))
	}

	for i := range balanced {
		balanced[i].ClusterID = i
	}
	return balanced
}

// splitCluster divides an oversized cluster round-robin by descending PEAR
// score so each piece keeps a share of the high-value attractions.
func (c *Clusterer) splitCluster(cluster core.GeoCluster) []core.GeoCluster {
	attractions := append([]core.Attraction(nil), cluster.Attractions...)
	sort.SliceStable(attractions, func(i, j int) bool {
		return attractions[i].PearScore > attractions[j].PearScore
	})

	splits := (len(attractions) + c.maxPerCluster - 1) / c.maxPerCluster
	out := make([]core.GeoCluster, 0, splits)
	for i := 0; i < splits; i++ {
		var members []core.Attraction
		for j := i; j < len(attractions); j += splits {
			members = append(members, attractions[j])
		}
		if len(members) > 0 {
			out = append(out, newCluster(len(out), members, c.minPerCluster, c.maxPerCluster))
		}
	}
	return out
}

// findBestCluster returns the index of the cluster an orphaned attraction
// fits best, or -1 when none qualifies. Closer clusters with higher value
// per hour win.
func (c *Clusterer) findBestCluster(a core.Attraction, clusters []core.GeoCluster) int {
	lat, lng := a.Coords()
	best := -1
	bestScore := math.Inf(-1)

	for i := range clusters {
		if clusters[i].Size() >= c.maxPerCluster {
			continue
		}
		dist := geo.Haversine(lat, lng, clusters[i].CenterLat, clusters[i].CenterLng)
		if dist > c.maxRadiusKm {
			continue
		}
		score := 1/(1+dist) + 0.3*clusters[i].ValuePerHour
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// canAdd checks that adding the attraction keeps the cluster within its size
// limit and radius, including distance to every existing member.
func (c *Clusterer) canAdd(a core.Attraction, cluster *core.GeoCluster) bool {
	if cluster.Size() >= c.maxPerCluster {
		return false
	}
	lat, lng := a.Coords()
	if geo.Haversine(lat, lng, cluster.CenterLat, cluster.CenterLng) > c.maxRadiusKm {
		return false
	}
	for i := range cluster.Attractions {
		mLat, mLng := cluster.Attractions[i].Coords()
		if geo.Haversine(lat, lng, mLat, mLng) > c.maxRadiusKm {
			return false
		}
	}
	return true
}

// optimizeVisitingOrder computes a greedy nearest-neighbor tour for each
// cluster and replaces the travel estimate with the tour's actual cost.
func (c *Clusterer) optimizeVisitingOrder(ctx context.Context, clusters []core.GeoCluster) ([]core.GeoCluster, bool, error) {
	usedReal := false
	for i := range clusters {
		cluster := &clusters[i]
		n := cluster.Size()
		if n <= 2 {
			cluster.OptimalOrder = identityOrder(n)
			continue
		}

		points := make([]routing.Point, n)
		for j := range cluster.Attractions {
			lat, lng := cluster.Attractions[j].Coords()
			points[j] = routing.Point{Lat: lat, Lng: lng}
		}
		matrix, err := routing.BuildMatrix(ctx, c.provider, points, c.maxConcurrency)
		if err != nil {
			return nil, false, fmt.Errorf("failed to build tour matrix for cluster %d: %w", cluster.ClusterID, err)
		}
		usedReal = usedReal || matrix.AnyReal

		order := routing.NearestNeighborOrder(matrix)
		cluster.OptimalOrder = order

		_, travelMinutes := matrix.TotalTravel(order)
		cluster.TotalTravelTimeMinutes = travelMinutes
		recalcCluster(cluster, c.minPerCluster, c.maxPerCluster)
	}
	return clusters, usedReal, nil
}

// RankClustersByValue orders clusters best-first by value per hour with
// bonuses for balance and optimal size and a penalty for heavy travel.
func (c *Clusterer) RankClustersByValue(clusters []core.GeoCluster) []core.GeoCluster {
	ranked := append([]core.GeoCluster(nil), clusters...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.clusterScore(ranked[i]) > c.clusterScore(ranked[j])
	})
	return ranked
}

func (c *Clusterer) clusterScore(cluster core.GeoCluster) float64 {
	score := cluster.ValuePerHour
	if cluster.IsBalanced {
		score *= 1.2
	}
	if cluster.TotalTravelTimeMinutes > 180 {
		score *= 0.7
	}
	if cluster.Size() >= c.minPerCluster && cluster.Size() <= c.maxPerCluster {
		score *= 1.1
	}
	return score
}

func clampClusterCount(target, n, minPerCluster int) int {
	k := n / maxInt(minPerCluster, 1)
	if target < k {
		k = target
	}
	if k < 1 {
		k = 1
	}
	return k
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
