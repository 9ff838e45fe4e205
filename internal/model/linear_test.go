package model

import (
	"math"
	"testing"
)

func TestFitOLSExactRecovery(t *testing.T) {
	// Noiseless y = 1.5 + 2x - 0.5z recovers exactly.
	n := 40
	x := make([]float64, n)
	z := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		z[i] = float64(i%7) - 3
		y[i] = 1.5 + 2*x[i] - 0.5*z[i]
	}
	res, err := FitOLS(y, []string{"x", "z"}, [][]float64{x, z})
	if err != nil {
		t.Fatalf("FitOLS: %v", err)
	}
	want := []float64{1.5, 2, -0.5}
	for i, w := range want {
		if math.Abs(res.Coef[i]-w) > 1e-8 {
			t.Errorf("coef %s = %g, want %g", res.Names[i], res.Coef[i], w)
		}
	}
	if res.R2 < 1-1e-10 {
		t.Errorf("R2 = %g, want 1 on noiseless data", res.R2)
	}
	if res.N != n {
		t.Errorf("N = %d, want %d", res.N, n)
	}
}

func TestFitOLSErrors(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2, 4, 6, 8, 10, 12}
	flat := []float64{3, 3, 3, 3, 3, 3}
	tests := []struct {
		name  string
		y     []float64
		names []string
		cols  [][]float64
	}{
		{"no observations", nil, nil, nil},
		{"constant response", flat, []string{"x"}, [][]float64{x}},
		{"constant column", y, []string{"flat"}, [][]float64{flat}},
		{"name mismatch", y, []string{"a", "b"}, [][]float64{x}},
		{"too few rows", y[:2], []string{"x"}, [][]float64{x[:2]}},
		{"duplicate column", y, []string{"x", "x2"}, [][]float64{x, x}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FitOLS(tt.y, tt.names, tt.cols); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
