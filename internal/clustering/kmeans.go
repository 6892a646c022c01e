package clustering

import (
	"math"
	"math/rand"
)

const (
	kmeansMaxIterations = 100
	kmeansSeed          = 42
)

// runKMeans clusters row vectors into k groups with Lloyd's algorithm.
// Initialization is k-means++ from a fixed seed so results are reproducible.
func runKMeans(vectors [][]float64, k int) []int {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	if k <= 1 {
		return make([]int, n)
	}
	if k >= n {
		assignments := make([]int, n)
		for i := range assignments {
			assignments[i] = i
		}
		return assignments
	}

	dim := len(vectors[0])
	centroids := initCentroids(vectors, k, dim)

	assignments := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(v, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids from current assignments.
		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for j := range v {
				next[c][j] += v[j]
			}
		}
		for c := range next {
			if counts[c] == 0 {
				next[c] = centroids[c]
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centroids = next
	}
	return assignments
}

// initCentroids seeds k centroids with k-means++ weighting.
func initCentroids(vectors [][]float64, k, dim int) [][]float64 {
	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids := make([][]float64, 0, k)

	first := rng.Intn(len(vectors))
	centroids = append(centroids, cloneVector(vectors[first]))

	for len(centroids) < k {
		weights := make([]float64, len(vectors))
		total := 0.0
		for i, v := range vectors {
			minDist := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDistance(v, c); d < minDist {
					minDist = d
				}
			}
			weights[i] = minDist
			total += minDist
		}

		if total == 0 {
			centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))
			continue
		}
		target := rng.Float64() * total
		cumulative := 0.0
		chosen := len(vectors) - 1
		for i, w := range weights {
			cumulative += w
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVector(vectors[chosen]))
	}
	return centroids
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := squaredDistance(v, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
