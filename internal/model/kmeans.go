package model

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/clickit/analytics-engine/apimodels"
)

const (
	kmeansMaxIterations = 300
	kmeansTolerance     = 1e-4
)

type KMeansResult struct {
	Labels     []int
	Centroids  [][]float64
	Iterations int
}

// KMeans clusters points into k groups by Euclidean distance.
// Centroids are seeded with k-means++ from seed, so equal inputs give equal labels.
func KMeans(points [][]float64, k int, seed uint64) (KMeansResult, error) {
	if k < 1 {
		return KMeansResult{}, fmt.Errorf("%w: n_clusters must be a positive integer, got %d", apimodels.ErrInvalidParameter, k)
	}
	if len(points) < k {
		return KMeansResult{}, fmt.Errorf("%w: %d rows cannot form %d clusters", apimodels.ErrInsufficientData, len(points), k)
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return KMeansResult{}, fmt.Errorf("%w: row %d has %d dimensions, want %d", apimodels.ErrDataFormat, i, len(p), dim)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centroids := initPlusPlus(points, k, rng)
	labels := make([]int, len(points))

	res := KMeansResult{Labels: labels, Centroids: centroids}
	for res.Iterations < kmeansMaxIterations {
		res.Iterations++
		for i, p := range points {
			labels[i] = nearest(p, centroids)
		}

		next := recompute(points, labels, centroids)
		shift := 0.0
		for c := range centroids {
			shift = max(shift, floats.Distance(centroids[c], next[c], 2))
		}
		centroids = next
		res.Centroids = next
		if shift < kmeansTolerance {
			break
		}
	}

	for i, p := range points {
		labels[i] = nearest(p, centroids)
	}
	return res, nil
}

func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	d2 := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := floats.Distance(p, centroids[nearest(p, centroids)], 2)
			d2[i] = d * d
			total += d2[i]
		}

		pick := rng.IntN(len(points))
		if total > 0 {
			r := rng.Float64() * total
			for i, w := range d2 {
				r -= w
				if r <= 0 && w > 0 {
					pick = i
					break
				}
			}
		}
		centroids = append(centroids, clone(points[pick]))
	}
	return centroids
}

// nearest breaks distance ties toward the lowest label.
func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, floats.Distance(p, centroids[0], 2)
	for c := 1; c < len(centroids); c++ {
		if d := floats.Distance(p, centroids[c], 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// recompute keeps the previous centroid for clusters that lost all members.
func recompute(points [][]float64, labels []int, prev [][]float64) [][]float64 {
	dim := len(prev[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		floats.Add(sums[labels[i]], p)
		counts[labels[i]]++
	}
	for c := range sums {
		if counts[c] == 0 {
			copy(sums[c], prev[c])
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
	}
	return sums
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
