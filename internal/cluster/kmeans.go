// Package cluster groups stations by accessibility profile: standardized
// features, seeded k-means++ and silhouette-based choice of k.
package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

const defaultMaxIter = 100

// Standardize z-scores each feature column in place over the rows. A column
// with zero variance cannot be standardized.
func Standardize(rows [][]float64, names []string) error {
	if len(rows) == 0 {
		return fmt.Errorf("no feature rows")
	}
	dims := len(rows[0])
	for j := 0; j < dims; j++ {
		col := make([]float64, len(rows))
		for i, row := range rows {
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			return fmt.Errorf("feature %q has zero variance", names[j])
		}
		for i := range rows {
			rows[i][j] = (rows[i][j] - mean) / std
		}
	}
	return nil
}

// Result is one k-means run: assignments parallel to the input rows.
type Result struct {
	K           int
	Assignments []int
	Centroids   [][]float64
	Inertia     float64
}

// KMeans clusters the rows with k-means++ seeding. The same seed always
// yields the same assignment.
func KMeans(rows [][]float64, k int, seed int64, maxIter int) (*Result, error) {
	n := len(rows)
	if k < 2 {
		return nil, fmt.Errorf("k must be at least 2, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("%d rows cannot form %d clusters", n, k)
	}
	if allIdentical(rows) {
		return nil, fmt.Errorf("all feature vectors identical, clustering undefined")
	}
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedPlusPlus(rows, k, rng)

	assign := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range rows {
			best, bestD := 0, math.Inf(1)
			for c, cent := range centroids {
				if d := sqDist(row, cent); d < bestD {
					best, bestD = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dims := len(rows[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, row := range rows {
			c := assign[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Reseed an emptied cluster on the point farthest from
				// its centroid.
				far, farD := 0, -1.0
				for i, row := range rows {
					if d := sqDist(row, centroids[assign[i]]); d > farD {
						far, farD = i, d
					}
				}
				centroids[c] = append([]float64(nil), rows[far]...)
				assign[far] = c
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	inertia := 0.0
	for i, row := range rows {
		inertia += sqDist(row, centroids[assign[i]])
	}
	return &Result{K: k, Assignments: assign, Centroids: centroids, Inertia: inertia}, nil
}

// seedPlusPlus picks initial centroids with probability proportional to the
// squared distance from the nearest already-chosen centroid.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rng.Intn(len(rows))
	centroids = append(centroids, append([]float64(nil), rows[first]...))

	d2 := make([]float64, len(rows))
	for len(centroids) < k {
		total := 0.0
		for i, row := range rows {
			best := math.Inf(1)
			for _, cent := range centroids {
				if d := sqDist(row, cent); d < best {
					best = d
				}
			}
			d2[i] = best
			total += best
		}
		if total == 0 {
			// Remaining points coincide with chosen centroids.
			centroids = append(centroids, append([]float64(nil), rows[rng.Intn(len(rows))]...))
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		pick := len(rows) - 1
		for i, d := range d2 {
			acc += d
			if acc >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), rows[pick]...))
	}
	return centroids
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func allIdentical(rows [][]float64) bool {
	for _, row := range rows[1:] {
		for j, v := range row {
			if v != rows[0][j] {
				return false
			}
		}
	}
	return true
}
