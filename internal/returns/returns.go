// Package returns provides pure functions for compounding and resampling
// returns across time horizons.
package returns

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"mekong/internal/domain"
)

// TradingDaysPerYear is the annualization horizon for total-return figures.
const TradingDaysPerYear = 250

// Resample converts a return observed over m periods into the equivalent
// compounded return over n periods:
//
//	(1 + r)^(n/m) - 1
//
// A return of -100% or worse raised to a fractional exponent has no real
// value; Resample reports that as domain.ErrDomain instead of returning NaN.
func Resample(r float64, n, m int) (float64, error) {
	if m == 0 {
		return 0, fmt.Errorf("resample over %d/%d periods: zero source horizon", n, m)
	}
	if r <= -1 && n%m != 0 {
		return 0, fmt.Errorf("resample return %g over %d/%d periods: %w", r, n, m, domain.ErrDomain)
	}
	return math.Pow(1+r, float64(n)/float64(m)) - 1, nil
}

// Annualize converts a total return realized over the given number of
// trading days into its annual equivalent.
func Annualize(total float64, days int) (float64, error) {
	return Resample(total, TradingDaysPerYear, days)
}

// Mean returns the arithmetic mean of the series, ignoring NaN entries.
// It returns NaN for an empty (or all-NaN) series.
func Mean(series []float64) float64 {
	valid := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

// FromPrices converts a price series into period-over-period returns:
// out[i] = prices[i+1]/prices[i] - 1. Non-positive prices yield NaN entries.
func FromPrices(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			out[i-1] = math.NaN()
			continue
		}
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}
