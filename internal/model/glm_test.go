package model

import (
	"math"
	"math/rand"
	"testing"
)

func poissonDraw(rng *rand.Rand, mu float64) float64 {
	// Knuth's method, fine for the small means used here.
	l := math.Exp(-mu)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return float64(k)
		}
		k++
	}
}

func TestFitPoissonRecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	n := 500
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.Float64()*4 - 2
		mu := math.Exp(1.0 + 0.5*x[i])
		y[i] = poissonDraw(rng, mu)
	}
	res, err := FitPoisson(y, []string{"x"}, [][]float64{x})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	if math.Abs(res.Coef[0]-1.0) > 0.1 {
		t.Errorf("intercept = %g, want ~1.0", res.Coef[0])
	}
	if math.Abs(res.Coef[1]-0.5) > 0.1 {
		t.Errorf("slope = %g, want ~0.5", res.Coef[1])
	}
	if res.Overdispersion < 0.5 || res.Overdispersion > 1.5 {
		t.Errorf("overdispersion = %g, want near 1 for Poisson data", res.Overdispersion)
	}
	if res.Family != FamilyPoisson {
		t.Errorf("family = %q, want poisson", res.Family)
	}
}

func TestFitNegBinomialFallsBackWhenEquidispersed(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	n := 400
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.Float64() * 2
		y[i] = poissonDraw(rng, math.Exp(0.5+0.3*x[i]))
	}
	res, err := FitNegBinomial(y, []string{"x"}, [][]float64{x})
	if err != nil {
		t.Fatalf("FitNegBinomial: %v", err)
	}
	if res.Overdispersion <= 1 && res.Family != FamilyPoisson {
		t.Errorf("equidispersed data should keep the Poisson fit, got %q", res.Family)
	}
}

func TestFitNegBinomialOverdispersed(t *testing.T) {
	// Poisson mixed over a gamma-like multiplier inflates the variance.
	rng := rand.New(rand.NewSource(31))
	n := 400
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.Float64() * 2
		mult := math.Exp(rng.NormFloat64() * 0.8)
		y[i] = poissonDraw(rng, math.Exp(1.0+0.4*x[i])*mult)
	}
	res, err := FitNegBinomial(y, []string{"x"}, [][]float64{x})
	if err != nil {
		t.Fatalf("FitNegBinomial: %v", err)
	}
	if res.Family != FamilyNegBin {
		t.Fatalf("overdispersed data should select the negative binomial, got %q", res.Family)
	}
	if res.Theta <= 0 {
		t.Errorf("theta = %g, want > 0", res.Theta)
	}
	if res.Overdispersion >= 2 {
		t.Errorf("negbin overdispersion = %g, variance model should absorb most excess", res.Overdispersion)
	}
}

func TestFitPoissonErrors(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5}
	tests := []struct {
		name string
		y    []float64
		cols [][]float64
	}{
		{"negative counts", []float64{1, 2, -1, 4, 5, 6}, [][]float64{x}},
		{"constant response", []float64{3, 3, 3, 3, 3, 3}, [][]float64{x}},
		{"nan response", []float64{1, 2, math.NaN(), 4, 5, 6}, [][]float64{x}},
		{"constant column", []float64{1, 2, 3, 4, 5, 6}, [][]float64{{2, 2, 2, 2, 2, 2}}},
		{"no observations", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := make([]string, len(tt.cols))
			for i := range names {
				names[i] = "c"
			}
			if _, err := FitPoisson(tt.y, names, tt.cols); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
