package curve

import (
	"errors"
	"math"
	"testing"

	"mekong/internal/domain"
)

func TestFitLinear(t *testing.T) {
	// y = 2x exactly.
	x := []float64{0.01, 0.02, 0.03}
	y := []float64{0.02, 0.04, 0.06}

	fit, err := FitReturns(x, y, 1)
	if err != nil {
		t.Fatalf("FitReturns: %v", err)
	}
	if math.Abs(fit.A-2) > 1e-9 {
		t.Errorf("slope = %g, want 2", fit.A)
	}
	if math.Abs(fit.B) > 1e-9 {
		t.Errorf("intercept = %g, want 0", fit.B)
	}
	if got := fit.Predict(0.05); math.Abs(got-0.10) > 1e-9 {
		t.Errorf("Predict(0.05) = %g, want 0.10", got)
	}
}

func TestFitLinearOrderIndependent(t *testing.T) {
	sorted, err := FitReturns([]float64{1, 2, 3, 4}, []float64{2.1, 3.9, 6.2, 7.8}, 1)
	if err != nil {
		t.Fatalf("FitReturns: %v", err)
	}
	shuffled, err := FitReturns([]float64{3, 1, 4, 2}, []float64{6.2, 2.1, 7.8, 3.9}, 1)
	if err != nil {
		t.Fatalf("FitReturns: %v", err)
	}
	if math.Abs(sorted.A-shuffled.A) > 1e-9 || math.Abs(sorted.B-shuffled.B) > 1e-9 {
		t.Errorf("fit depends on input order: %+v vs %+v", sorted, shuffled)
	}
}

func TestFitQuadratic(t *testing.T) {
	// y = 3x^2 - 0.5x, sampled without noise.
	x := []float64{-0.2, -0.1, 0.05, 0.1, 0.2, 0.3}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 3*xi*xi - 0.5*xi
	}

	fit, err := FitReturns(x, y, 2)
	if err != nil {
		t.Fatalf("FitReturns: %v", err)
	}
	if math.Abs(fit.A-3) > 1e-9 {
		t.Errorf("a = %g, want 3", fit.A)
	}
	if math.Abs(fit.B-(-0.5)) > 1e-9 {
		t.Errorf("b = %g, want -0.5", fit.B)
	}
	if got := fit.Predict(0.5); math.Abs(got-(3*0.25-0.25)) > 1e-9 {
		t.Errorf("Predict(0.5) = %g, want 0.5", got)
	}
}

func TestFitQuadraticNoIntercept(t *testing.T) {
	// The degree-2 form has no constant term: prediction at 0 is exactly 0
	// regardless of the sample.
	fit, err := FitReturns([]float64{0.1, 0.2, 0.3, 0.4}, []float64{0.5, 0.4, 0.9, 1.1}, 2)
	if err != nil {
		t.Fatalf("FitReturns: %v", err)
	}
	if got := fit.Predict(0); got != 0 {
		t.Errorf("Predict(0) = %g, want 0", got)
	}
}

func TestFitInsufficientData(t *testing.T) {
	if _, err := FitReturns([]float64{1, 2}, []float64{1, 2}, 1); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("two samples: error = %v, want ErrInsufficientData", err)
	}
	if _, err := FitReturns([]float64{1, 2, 3}, []float64{1, 2}, 1); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("mismatched lengths: error = %v, want ErrInsufficientData", err)
	}
}

func TestFitUnsupportedDegree(t *testing.T) {
	x := []float64{1, 2, 3}
	for _, degree := range []int{0, 3, -1} {
		if _, err := FitReturns(x, x, degree); err == nil {
			t.Errorf("degree %d should fail", degree)
		}
	}
}
