package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// OLSResult holds an ordinary least squares fit. The first coefficient is
// the intercept.
type OLSResult struct {
	Names  []string
	Coef   []float64
	StdErr []float64
	R2     float64
	AdjR2  float64
	Sigma2 float64
	N      int
}

// FitOLS regresses y on an intercept plus the named columns.
func FitOLS(y []float64, names []string, cols [][]float64) (*OLSResult, error) {
	n := len(y)
	if n == 0 {
		return nil, fmt.Errorf("no observations")
	}
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%d names for %d columns", len(names), len(cols))
	}
	p := len(cols) + 1
	if n <= p {
		return nil, fmt.Errorf("%d observations for %d coefficients", n, p)
	}
	if constant(y) {
		return nil, fmt.Errorf("response has zero variance")
	}
	for i, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("column %q has %d values for %d observations", names[i], len(c), n)
		}
		if constant(c) {
			return nil, fmt.Errorf("column %q has zero variance", names[i])
		}
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, c := range cols {
			x.Set(i, j+1, c[i])
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var xtx, xty mat.Dense
	xtx.Mul(x.T(), x)
	xty.Mul(x.T(), yv)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("collinear design: %w", err)
	}
	var betaM mat.Dense
	betaM.Mul(&xtxInv, &xty)
	beta := mat.Col(nil, 0, &betaM)

	rss := 0.0
	for i := 0; i < n; i++ {
		fit := 0.0
		for j := 0; j < p; j++ {
			fit += x.At(i, j) * beta[j]
		}
		r := y[i] - fit
		rss += r * r
	}
	sigma2 := rss / float64(n-p)

	stderr := make([]float64, p)
	for j := 0; j < p; j++ {
		stderr[j] = math.Sqrt(sigma2 * xtxInv.At(j, j))
	}

	tss := 0.0
	ym := stat.Mean(y, nil)
	for _, v := range y {
		tss += (v - ym) * (v - ym)
	}
	r2 := 1 - rss/tss

	allNames := append([]string{"(intercept)"}, names...)
	return &OLSResult{
		Names:  allNames,
		Coef:   beta,
		StdErr: stderr,
		R2:     r2,
		AdjR2:  1 - (1-r2)*float64(n-1)/float64(n-p),
		Sigma2: sigma2,
		N:      n,
	}, nil
}
