package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	irlsMaxIter = 50
	irlsTol     = 1e-9
)

// GLMFamily labels the count-model variance assumption.
type GLMFamily string

const (
	FamilyPoisson GLMFamily = "poisson"
	FamilyNegBin  GLMFamily = "negbin"
)

// GLMResult holds a log-link count regression fitted by iteratively
// reweighted least squares. The first coefficient is the intercept.
type GLMResult struct {
	Family         GLMFamily
	Names          []string
	Coef           []float64
	StdErr         []float64
	Deviance       float64
	AIC            float64
	Overdispersion float64 // Pearson chi-square over residual df
	Theta          float64 // negative binomial size, 0 for Poisson
	N              int
	Iterations     int
}

// FitPoisson fits a Poisson regression of counts y on an intercept plus the
// named columns. Responses must be non-negative.
func FitPoisson(y []float64, names []string, cols [][]float64) (*GLMResult, error) {
	return fitCountGLM(y, names, cols, FamilyPoisson, 0)
}

// FitNegBinomial fits a negative binomial regression, estimating the size
// parameter theta by moments from a Poisson first pass. It falls back to the
// Poisson fit when the data show no overdispersion.
func FitNegBinomial(y []float64, names []string, cols [][]float64) (*GLMResult, error) {
	pois, err := fitCountGLM(y, names, cols, FamilyPoisson, 0)
	if err != nil {
		return nil, err
	}
	if pois.Overdispersion <= 1 {
		return pois, nil
	}
	// Moment estimate from the Pearson statistic: var = mu + mu²/theta.
	theta := 1 / (pois.Overdispersion - 1)
	if theta <= 0 || math.IsInf(theta, 0) || math.IsNaN(theta) {
		return pois, nil
	}
	return fitCountGLM(y, names, cols, FamilyNegBin, theta)
}

func fitCountGLM(y []float64, names []string, cols [][]float64, family GLMFamily, theta float64) (*GLMResult, error) {
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
	for i, v := range y {
		if v < 0 {
			return nil, fmt.Errorf("count response has negative value %g at row %d", v, i)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("count response has non-finite value at row %d", i)
		}
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

	eta := make([]float64, n)
	mu := make([]float64, n)
	for i := range y {
		mu[i] = y[i] + 0.5
		eta[i] = math.Log(mu[i])
	}

	var beta []float64
	var xtwxInv mat.Dense
	prevDev := math.Inf(1)
	iters := 0
	for iter := 0; iter < irlsMaxIter; iter++ {
		iters = iter + 1
		// Working weights and response for the log link.
		w := make([]float64, n)
		z := make([]float64, n)
		for i := 0; i < n; i++ {
			v := mu[i]
			if family == FamilyNegBin {
				v = mu[i] / (1 + mu[i]/theta)
			}
			w[i] = v
			z[i] = eta[i] + (y[i]-mu[i])/mu[i]
		}

		xtwx := mat.NewDense(p, p, nil)
		xtwz := mat.NewVecDense(p, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				xij := x.At(i, j)
				xtwz.SetVec(j, xtwz.AtVec(j)+w[i]*xij*z[i])
				for k := j; k < p; k++ {
					v := xtwx.At(j, k) + w[i]*xij*x.At(i, k)
					xtwx.Set(j, k, v)
					if k != j {
						xtwx.Set(k, j, v)
					}
				}
			}
		}
		if err := xtwxInv.Inverse(xtwx); err != nil {
			return nil, fmt.Errorf("singular weighted system at iteration %d: %w", iter, err)
		}
		var betaM mat.Dense
		betaM.Mul(&xtwxInv, xtwz)
		beta = mat.Col(nil, 0, &betaM)

		dev := 0.0
		for i := 0; i < n; i++ {
			e := 0.0
			for j := 0; j < p; j++ {
				e += x.At(i, j) * beta[j]
			}
			if e > 30 {
				return nil, fmt.Errorf("count model diverged, linear predictor overflow at row %d", i)
			}
			eta[i] = e
			mu[i] = math.Exp(e)
			dev += devianceTerm(y[i], mu[i], family, theta)
		}
		if math.Abs(dev-prevDev) < irlsTol*(math.Abs(dev)+irlsTol) {
			prevDev = dev
			break
		}
		prevDev = dev
	}

	stderr := make([]float64, p)
	for j := 0; j < p; j++ {
		stderr[j] = math.Sqrt(xtwxInv.At(j, j))
	}

	pearson := 0.0
	for i := 0; i < n; i++ {
		v := mu[i]
		if family == FamilyNegBin {
			v = mu[i] + mu[i]*mu[i]/theta
		}
		r := y[i] - mu[i]
		pearson += r * r / v
	}

	ll := 0.0
	for i := 0; i < n; i++ {
		ll += logLik(y[i], mu[i], family, theta)
	}
	aic := -2*ll + 2*float64(p)
	if family == FamilyNegBin {
		aic += 2 // theta counts as an estimated parameter
	}

	return &GLMResult{
		Family:         family,
		Names:          append([]string{"(intercept)"}, names...),
		Coef:           beta,
		StdErr:         stderr,
		Deviance:       prevDev,
		AIC:            aic,
		Overdispersion: pearson / float64(n-p),
		Theta:          theta,
		N:              n,
		Iterations:     iters,
	}, nil
}

func devianceTerm(y, mu float64, family GLMFamily, theta float64) float64 {
	switch family {
	case FamilyNegBin:
		t := 0.0
		if y > 0 {
			t = y * math.Log(y/mu)
		}
		return 2 * (t - (y+theta)*math.Log((y+theta)/(mu+theta)))
	default:
		if y == 0 {
			return 2 * mu
		}
		return 2 * (y*math.Log(y/mu) - (y - mu))
	}
}

func logLik(y, mu float64, family GLMFamily, theta float64) float64 {
	lgY, _ := math.Lgamma(y + 1)
	switch family {
	case FamilyNegBin:
		lgYT, _ := math.Lgamma(y + theta)
		lgT, _ := math.Lgamma(theta)
		return lgYT - lgT - lgY +
			theta*math.Log(theta/(theta+mu)) +
			y*math.Log(mu/(theta+mu))
	default:
		return y*math.Log(mu) - mu - lgY
	}
}
