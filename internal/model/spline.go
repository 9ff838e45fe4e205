package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// splineOrder is the B-spline order (4 = cubic).
const splineOrder = 4

// Basis is a cubic B-spline basis fitted to a covariate's range: df basis
// functions with interior knots at data quantiles.
type Basis struct {
	knots []float64 // full knot vector, boundary knots repeated
	df    int
	lo    float64
	hi    float64
}

// NewBasis builds a basis for the observed covariate values.
func NewBasis(x []float64, df int) (*Basis, error) {
	if df < splineOrder {
		return nil, fmt.Errorf("spline df %d below order %d", df, splineOrder)
	}
	if len(x) < df {
		return nil, fmt.Errorf("%d observations cannot support %d spline df", len(x), df)
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return nil, fmt.Errorf("covariate has zero variance, spline basis undefined")
	}

	nInterior := df - splineOrder
	knots := make([]float64, 0, df+splineOrder)
	for i := 0; i < splineOrder; i++ {
		knots = append(knots, lo)
	}
	for i := 1; i <= nInterior; i++ {
		q := float64(i) / float64(nInterior+1)
		knots = append(knots, quantile(sorted, q))
	}
	for i := 0; i < splineOrder; i++ {
		knots = append(knots, hi)
	}
	return &Basis{knots: knots, df: df, lo: lo, hi: hi}, nil
}

// DF returns the number of basis functions.
func (b *Basis) DF() int { return b.df }

// Range returns the covariate range spanned by the basis.
func (b *Basis) Range() (lo, hi float64) { return b.lo, b.hi }

// Row evaluates all basis functions at x. Values outside the fitted range are
// clamped to the boundary.
func (b *Basis) Row(x float64) []float64 {
	if x < b.lo {
		x = b.lo
	}
	if x > b.hi {
		x = b.hi
	}

	// Knot span index: last i with knots[i] <= x < knots[i+1].
	span := b.df - 1
	if x < b.hi {
		span = sort.SearchFloat64s(b.knots, x)
		for span < len(b.knots)-1 && b.knots[span] <= x {
			span++
		}
		span--
	}

	// Cox-de Boor: the splineOrder nonzero basis values at x.
	vals := make([]float64, splineOrder)
	left := make([]float64, splineOrder)
	right := make([]float64, splineOrder)
	vals[0] = 1
	for j := 1; j < splineOrder; j++ {
		left[j] = x - b.knots[span+1-j]
		right[j] = b.knots[span+j] - x
		var saved float64
		for r := 0; r < j; r++ {
			den := right[r+1] + left[j-r]
			var temp float64
			if den != 0 {
				temp = vals[r] / den
			}
			vals[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		vals[j] = saved
	}

	row := make([]float64, b.df)
	for r := 0; r < splineOrder; r++ {
		idx := span - splineOrder + 1 + r
		if idx >= 0 && idx < b.df {
			row[idx] = vals[r]
		}
	}
	return row
}

// Matrix evaluates the basis at every observation, one row per value.
func (b *Basis) Matrix(x []float64) *mat.Dense {
	m := mat.NewDense(len(x), b.df, nil)
	for i, v := range x {
		m.SetRow(i, b.Row(v))
	}
	return m
}

// Penalty returns the second-difference penalty matrix DᵀD on the basis
// coefficients, the usual P-spline wiggliness penalty.
func (b *Basis) Penalty() *mat.Dense {
	d := mat.NewDense(b.df-2, b.df, nil)
	for i := 0; i < b.df-2; i++ {
		d.Set(i, i, 1)
		d.Set(i, i+1, -2)
		d.Set(i, i+2, 1)
	}
	var p mat.Dense
	p.Mul(d.T(), d)
	return &p
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i]*(1-frac) + sorted[i+1]*frac
}
