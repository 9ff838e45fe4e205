package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SmoothSpec declares one smooth term of an additive model.
type SmoothSpec struct {
	Name string
	X    []float64
	DF   int
}

// LinearSpec declares one parametric term (dummy or continuous).
type LinearSpec struct {
	Name string
	X    []float64
}

// term records where a fitted term's coefficients live in the design matrix.
type term struct {
	name   string
	smooth bool
	basis  *Basis
	start  int // first column in the design matrix
	end    int // one past the last column
	means  []float64
	x      []float64
}

// GAM is a penalized additive model fitted by generalized cross-validation
// over a shared smoothing parameter.
type GAM struct {
	terms  []term
	beta   *mat.VecDense
	cov    *mat.Dense // sigma2 * (XᵀX + λS)⁻¹
	lambda float64
	gcv    float64
	edf    float64
	sigma2 float64
	r2     float64
	n      int
	yMean  float64
}

// FitGAM fits y against an intercept, the given smooth terms and the given
// linear terms. The smoothing parameter is selected from lambdaGrid by GCV;
// the same lambda is shared across smooths.
func FitGAM(y []float64, smooths []SmoothSpec, linears []LinearSpec, lambdaGrid []float64) (*GAM, error) {
	n := len(y)
	if n == 0 {
		return nil, fmt.Errorf("no observations")
	}
	if len(lambdaGrid) == 0 {
		return nil, fmt.Errorf("empty lambda grid")
	}
	if constant(y) {
		return nil, fmt.Errorf("response has zero variance")
	}

	p := 1
	terms := make([]term, 0, len(smooths)+len(linears))
	for _, s := range smooths {
		if len(s.X) != n {
			return nil, fmt.Errorf("smooth %q has %d values for %d observations", s.Name, len(s.X), n)
		}
		b, err := NewBasis(s.X, s.DF)
		if err != nil {
			return nil, fmt.Errorf("smooth %q: %w", s.Name, err)
		}
		// One basis column is dropped after centering: the centered columns
		// of a partition-of-unity basis sum to zero row-wise, so the full
		// block is confounded with the intercept at every lambda.
		ncol := s.DF - 1
		terms = append(terms, term{name: s.Name, smooth: true, basis: b, start: p, end: p + ncol, x: s.X})
		p += ncol
	}
	for _, l := range linears {
		if len(l.X) != n {
			return nil, fmt.Errorf("term %q has %d values for %d observations", l.Name, len(l.X), n)
		}
		terms = append(terms, term{name: l.Name, start: p, end: p + 1, x: l.X})
		p++
	}
	if n <= p {
		return nil, fmt.Errorf("%d observations for %d coefficients", n, p)
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for ti := range terms {
		t := &terms[ti]
		if t.smooth {
			bm := t.basis.Matrix(t.x)
			t.means = make([]float64, t.basis.df)
			for j := 0; j < t.basis.df; j++ {
				col := mat.Col(nil, j, bm)
				t.means[j] = stat.Mean(col, nil)
				if j >= t.end-t.start {
					continue
				}
				for i := 0; i < n; i++ {
					x.Set(i, t.start+j, col[i]-t.means[j])
				}
			}
		} else {
			for i := 0; i < n; i++ {
				x.Set(i, t.start, t.x[i])
			}
		}
	}

	// Shared block-diagonal penalty, zero on intercept and linear terms.
	pen := mat.NewDense(p, p, nil)
	for _, t := range terms {
		if !t.smooth {
			continue
		}
		block := t.basis.Penalty()
		ncol := t.end - t.start
		for i := 0; i < ncol; i++ {
			for j := 0; j < ncol; j++ {
				pen.Set(t.start+i, t.start+j, block.At(i, j))
			}
		}
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	var xtx, xty mat.Dense
	xtx.Mul(x.T(), x)
	xty.Mul(x.T(), yv)

	best := &GAM{gcv: math.Inf(1)}
	for _, lambda := range lambdaGrid {
		if lambda < 0 {
			return nil, fmt.Errorf("negative smoothing parameter %g", lambda)
		}
		a := mat.NewDense(p, p, nil)
		a.Scale(lambda, pen)
		a.Add(a, &xtx)

		var ainv mat.Dense
		if err := ainv.Inverse(a); err != nil {
			// Ill-conditioned at this lambda; the rest of the grid may
			// still produce a fit.
			continue
		}
		var betaM mat.Dense
		betaM.Mul(&ainv, &xty)
		beta := mat.NewVecDense(p, mat.Col(nil, 0, &betaM))

		var hat mat.Dense
		hat.Mul(&ainv, &xtx)
		edf := trace(&hat)

		var fitted mat.VecDense
		fitted.MulVec(x, beta)
		rss := 0.0
		for i := 0; i < n; i++ {
			r := y[i] - fitted.AtVec(i)
			rss += r * r
		}
		denom := 1 - edf/float64(n)
		if denom <= 0 {
			continue
		}
		gcv := rss / float64(n) / (denom * denom)
		if gcv < best.gcv {
			sigma2 := rss / (float64(n) - edf)
			var cov mat.Dense
			cov.Scale(sigma2, &ainv)
			tss := 0.0
			ym := stat.Mean(y, nil)
			for _, v := range y {
				tss += (v - ym) * (v - ym)
			}
			best = &GAM{
				beta:   beta,
				cov:    &cov,
				lambda: lambda,
				gcv:    gcv,
				edf:    edf,
				sigma2: sigma2,
				r2:     1 - rss/tss,
				n:      n,
				yMean:  ym,
			}
		}
	}
	if best.beta == nil {
		return nil, fmt.Errorf("no smoothing parameter in the grid yielded a valid fit")
	}
	best.terms = terms
	return best, nil
}

// Lambda returns the GCV-selected smoothing parameter.
func (g *GAM) Lambda() float64 { return g.lambda }

// GCV returns the generalized cross-validation score at the selected lambda.
func (g *GAM) GCV() float64 { return g.gcv }

// EDF returns the effective degrees of freedom of the fit.
func (g *GAM) EDF() float64 { return g.edf }

// R2 returns the fraction of response variance explained.
func (g *GAM) R2() float64 { return g.r2 }

// N returns the number of observations used in the fit.
func (g *GAM) N() int { return g.n }

// TermNames lists the fitted terms in design order.
func (g *GAM) TermNames() []string {
	names := make([]string, len(g.terms))
	for i, t := range g.terms {
		names[i] = t.name
	}
	return names
}

// Coef returns the coefficient and standard error of a linear term.
func (g *GAM) Coef(name string) (coef, stderr float64, err error) {
	for _, t := range g.terms {
		if t.name == name && !t.smooth {
			return g.beta.AtVec(t.start), math.Sqrt(g.cov.At(t.start, t.start)), nil
		}
	}
	return 0, 0, fmt.Errorf("no linear term %q", name)
}

// PartialCurve is a smooth term's estimated effect on a covariate grid,
// centered over the training data, with pointwise 95% bounds.
type PartialCurve struct {
	Name  string
	X     []float64
	Fit   []float64
	Lower []float64
	Upper []float64
}

// PartialEffect evaluates a smooth term on an even grid of the given size
// spanning the covariate's observed range.
func (g *GAM) PartialEffect(name string, points int) (*PartialCurve, error) {
	if points < 2 {
		return nil, fmt.Errorf("partial effect grid needs at least 2 points")
	}
	var t *term
	for i := range g.terms {
		if g.terms[i].name == name && g.terms[i].smooth {
			t = &g.terms[i]
			break
		}
	}
	if t == nil {
		return nil, fmt.Errorf("no smooth term %q", name)
	}

	lo, hi := t.basis.Range()
	curve := &PartialCurve{
		Name:  name,
		X:     make([]float64, points),
		Fit:   make([]float64, points),
		Lower: make([]float64, points),
		Upper: make([]float64, points),
	}
	ncol := t.end - t.start
	for i := 0; i < points; i++ {
		xv := lo + (hi-lo)*float64(i)/float64(points-1)
		row := t.basis.Row(xv)[:ncol]
		for j := range row {
			row[j] -= t.means[j]
		}
		fit := 0.0
		for j := 0; j < ncol; j++ {
			fit += row[j] * g.beta.AtVec(t.start+j)
		}
		// Pointwise variance rowᵀ V row over the term's coefficient block.
		v := 0.0
		for j := 0; j < ncol; j++ {
			for k := 0; k < ncol; k++ {
				v += row[j] * g.cov.At(t.start+j, t.start+k) * row[k]
			}
		}
		se := math.Sqrt(v)
		curve.X[i] = xv
		curve.Fit[i] = fit
		curve.Lower[i] = fit - 1.96*se
		curve.Upper[i] = fit + 1.96*se
	}
	return curve, nil
}

func trace(m *mat.Dense) float64 {
	r, _ := m.Dims()
	s := 0.0
	for i := 0; i < r; i++ {
		s += m.At(i, i)
	}
	return s
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
