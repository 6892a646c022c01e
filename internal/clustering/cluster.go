// Package clustering groups attractions into day-sized geographic clusters.
// Three algorithms are available: smart clustering over a combined
// score-and-distance similarity, plain geographic k-means, and DBSCAN. All
// of them feed the same balancing pass that keeps each cluster visitable in
// a single day.
package clustering

import (
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/geo"
)

// Balance thresholds for a same-day cluster.
const (
	balanceMaxPairwiseKm = 50.0
	balanceMaxHours      = 14.0
	balanceMinValueRate  = 0.1
)

// newCluster builds a GeoCluster and computes all derived metrics.
func newCluster(id int, attractions []core.Attraction, sizeMin, sizeMax int) core.GeoCluster {
	c := core.GeoCluster{ClusterID: id, Attractions: attractions}
	recalcCluster(&c, sizeMin, sizeMax)
	return c
}

// recalcCluster recomputes center, totals, travel estimate, region and
// balance after any membership change.
func recalcCluster(c *core.GeoCluster, sizeMin, sizeMax int) {
	n := len(c.Attractions)
	if n == 0 {
		return
	}

	var sumLat, sumLng, sumPear float64
	for i := range c.Attractions {
		lat, lng := c.Attractions[i].Coords()
		sumLat += lat
		sumLng += lng
		sumPear += c.Attractions[i].PearScore
	}
	c.CenterLat = sumLat / float64(n)
	c.CenterLng = sumLng / float64(n)
	c.TotalPearScore = sumPear
	c.RegionName = RegionName(c.CenterLat, c.CenterLng)

	// Pairwise distances drive both the spread metric and the pre-ordering
	// travel estimate.
	var maxDist, totalDist float64
	pairs := 0
	for i := 0; i < n; i++ {
		latI, lngI := c.Attractions[i].Coords()
		for j := i + 1; j < n; j++ {
			latJ, lngJ := c.Attractions[j].Coords()
			d := geo.Haversine(latI, lngI, latJ, lngJ)
			if d > maxDist {
				maxDist = d
			}
			totalDist += d
			pairs++
		}
	}
	c.MaxTravelDistanceKm = maxDist

	if n <= 1 {
		c.TotalTravelTimeMinutes = 0
	} else if len(c.OptimalOrder) != n {
		// No visiting order yet: estimate from average hop length.
		avg := totalDist / float64(pairs)
		c.TotalTravelTimeMinutes = geo.TravelMinutes(avg) * float64(n-1)
	}

	visitMinutes := 0.0
	for i := range c.Attractions {
		visitMinutes += float64(c.Attractions[i].VisitDurationMinutes)
	}
	c.EstimatedTimeHours = (visitMinutes + c.TotalTravelTimeMinutes) / 60.0
	c.ValuePerHour = c.TotalPearScore / maxFloat(c.EstimatedTimeHours, 0.1)

	c.IsBalanced = c.MaxTravelDistanceKm <= balanceMaxPairwiseKm &&
		c.EstimatedTimeHours <= balanceMaxHours &&
		n >= sizeMin && n <= sizeMax+2 &&
		c.ValuePerHour > balanceMinValueRate
}

// addToCluster appends an attraction and refreshes the metrics.
func addToCluster(c *core.GeoCluster, a core.Attraction, sizeMin, sizeMax int) {
	c.Attractions = append(c.Attractions, a)
	c.OptimalOrder = nil
	recalcCluster(c, sizeMin, sizeMax)
}

// RegionName maps coordinates onto Sri Lankan provinces. The boundaries are
// coarse latitude/longitude bands, good enough for itinerary labels.
func RegionName(lat, lng float64) string {
	switch {
	case lat > 9.0:
		return "Northern Province"
	case lat > 8.0 && lng < 80.0:
		return "North Western Province"
	case lat > 7.5 && lng < 80.5:
		return "Western Province"
	case lat > 7.5 && lng > 81.0:
		return "Eastern Province"
	case lat > 6.8 && lng > 80.2 && lng < 81.2:
		return "Central Province"
	case lat > 6.0 && lng < 80.5:
		return "Southern Province"
	case lng > 81.0:
		return "Uva Province"
	default:
		return "Sabaragamuwa Province"
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
