// Package curve fits low-degree polynomials relating one asset's periodic
// return to another's, used to predict fair value.
package curve

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"mekong/internal/domain"
)

// MinSamples is the smallest paired sample a fit will accept.
const MinSamples = 3

// Fit holds the coefficients of a fitted curve. Degree 1 is y = a*x + b;
// degree 2 is y = a*x^2 + b*x (no intercept). A Fit is immutable once
// produced.
type Fit struct {
	Degree int
	A      float64
	B      float64
}

// FitReturns least-squares fits y against x with the given polynomial
// degree. The input order does not affect the result.
func FitReturns(x, y []float64, degree int) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("fit: %d x samples vs %d y samples: %w", len(x), len(y), domain.ErrInsufficientData)
	}
	if len(x) < MinSamples {
		return Fit{}, fmt.Errorf("fit over %d paired samples (minimum %d): %w", len(x), MinSamples, domain.ErrInsufficientData)
	}

	switch degree {
	case 1:
		b, a := stat.LinearRegression(x, y, nil, false)
		return Fit{Degree: 1, A: a, B: b}, nil

	case 2:
		// Solve the 2-column design matrix [x^2 x] for [a b] via QR.
		design := mat.NewDense(len(x), 2, nil)
		for i, xi := range x {
			design.Set(i, 0, xi*xi)
			design.Set(i, 1, xi)
		}
		var qr mat.QR
		qr.Factorize(design)

		var coef mat.Dense
		if err := qr.SolveTo(&coef, false, mat.NewDense(len(y), 1, y)); err != nil {
			return Fit{}, fmt.Errorf("fit degree 2: %w", err)
		}
		return Fit{Degree: 2, A: coef.At(0, 0), B: coef.At(1, 0)}, nil

	default:
		return Fit{}, fmt.Errorf("fit: unsupported degree %d (want 1 or 2)", degree)
	}
}

// Predict evaluates the fitted polynomial at x.
func (f Fit) Predict(x float64) float64 {
	if f.Degree == 2 {
		return f.A*x*x + f.B*x
	}
	return f.A*x + f.B
}
