package cluster

import (
	"fmt"
	"math"
)

// Silhouette returns the mean silhouette coefficient of an assignment.
// Singleton clusters contribute zero, the usual convention.
func Silhouette(rows [][]float64, assign []int, k int) float64 {
	n := len(rows)
	counts := make([]int, k)
	for _, c := range assign {
		counts[c]++
	}

	total := 0.0
	for i := range rows {
		ci := assign[i]
		if counts[ci] <= 1 {
			continue
		}
		// Mean distance to own cluster and nearest other cluster.
		sums := make([]float64, k)
		for j := range rows {
			if i == j {
				continue
			}
			sums[assign[j]] += math.Sqrt(sqDist(rows[i], rows[j]))
		}
		a := sums[ci] / float64(counts[ci]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == ci || counts[c] == 0 {
				continue
			}
			if m := sums[c] / float64(counts[c]); m < b {
				b = m
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}

// Selection is the silhouette sweep over a k range, with the chosen run.
type Selection struct {
	Best   *Result
	Scores map[int]float64 // mean silhouette per candidate k
}

// SelectK runs k-means for every k in [kMin, kMax] and keeps the run with
// the highest mean silhouette. Ties go to the smaller k.
func SelectK(rows [][]float64, kMin, kMax int, seed int64, maxIter int) (*Selection, error) {
	if kMin < 2 || kMax < kMin {
		return nil, fmt.Errorf("invalid k range [%d, %d]", kMin, kMax)
	}
	sel := &Selection{Scores: make(map[int]float64)}
	bestScore := math.Inf(-1)
	for k := kMin; k <= kMax; k++ {
		res, err := KMeans(rows, k, seed, maxIter)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		score := Silhouette(rows, res.Assignments, k)
		sel.Scores[k] = score
		if score > bestScore {
			bestScore = score
			sel.Best = res
		}
	}
	return sel, nil
}
