package routing

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/core"
)

// DefaultMaxConcurrency bounds parallel route lookups in a matrix build.
const DefaultMaxConcurrency = 8

// Point is a coordinate pair used for matrix computation.
type Point struct {
	Lat float64
	Lng float64
}

// Matrix holds pairwise travel costs between a set of points. It is
// symmetric with a zero diagonal.
type Matrix struct {
	Routes  [][]core.RouteInfo
	AnyReal bool // true when at least one pair came from a real provider
}

// BuildMatrix computes all pairwise routes with bounded concurrency. Each
// pair writes into its own pre-allocated slot, so no locking is needed; the
// mirror entries are filled after the group completes.
func BuildMatrix(ctx context.Context, provider Provider, points []Point, maxConcurrency int) (*Matrix, error) {
	n := len(points)
	routes := make([][]core.RouteInfo, n)
	for i := range routes {
		routes[i] = make([]core.RouteInfo, n)
	}
	if n < 2 {
		return &Matrix{Routes: routes}, nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			i, j := i, j
			g.Go(func() error {
				info, err := provider.Route(gctx, points[i].Lat, points[i].Lng, points[j].Lat, points[j].Lng)
				if err != nil {
					return fmt.Errorf("route %d->%d: %w", i, j, err)
				}
				routes[i][j] = info
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Matrix{Routes: routes}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			routes[j][i] = routes[i][j]
			if !routes[i][j].Fallback {
				m.AnyReal = true
			}
		}
	}
	return m, nil
}

// TotalTravel sums distance and duration along an ordered tour.
func (m *Matrix) TotalTravel(order []int) (distanceKm, durationMinutes float64) {
	for i := 0; i+1 < len(order); i++ {
		r := m.Routes[order[i]][order[i+1]]
		distanceKm += r.DistanceKm
		durationMinutes += r.DurationMinutes
	}
	return distanceKm, durationMinutes
}

// NearestNeighborOrder computes a visiting order over n points starting at
// index 0 and always moving to the closest unvisited point. Ties go to the
// lowest index. Fewer than three points keep their given order.
func NearestNeighborOrder(m *Matrix) []int {
	n := len(m.Routes)
	order := make([]int, 0, n)
	if n == 0 {
		return order
	}

	visited := make([]bool, n)
	current := 0
	order = append(order, current)
	visited[current] = true

	for len(order) < n {
		next := -1
		best := 0.0
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			d := m.Routes[current][j].DistanceKm
			if next == -1 || d < best {
				next = j
				best = d
			}
		}
		order = append(order, next)
		visited[next] = true
		current = next
	}
	return order
}
