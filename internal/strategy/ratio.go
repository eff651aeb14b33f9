package strategy

import (
	"context"
	"fmt"
	"math"

	"mekong/internal/config"
	"mekong/internal/curve"
	"mekong/internal/domain"
)

// RatioParams is the parameter set for the single-asset fair-value strategy.
// Degree 0 uses the model prediction as-is; a nonzero degree calibrates the
// prediction against realized targets with a polynomial fit.
type RatioParams struct {
	Ticker     string
	Multiplier float64
	Degree     int
	MaxPortion float64
}

// RatioStrategy trades one asset against an externally modeled fair value.
// It buys when the calibrated prediction exceeds the close by more than the
// multiplier band and sells when it falls below it.
type RatioStrategy struct {
	params RatioParams

	// calibration sample of (raw prediction, realized value) pairs
	calX, calY []float64

	calibrated bool
	fit        curve.Fit
}

var _ Strategy = (*RatioStrategy)(nil)

// NewRatioStrategy creates a ratio strategy. calX and calY are the raw
// prediction and realized target samples the calibration fit runs on; both
// are ignored when Degree is 0.
func NewRatioStrategy(params RatioParams, calX, calY []float64) *RatioStrategy {
	return &RatioStrategy{params: params, calX: calX, calY: calY}
}

// RatioFromConfig builds the parameter set from a configured ratio entry.
func RatioFromConfig(rc config.RatioConfig) RatioParams {
	return RatioParams{
		Ticker:     rc.Ticker,
		Multiplier: rc.Multiplier,
		Degree:     rc.Degree,
		MaxPortion: rc.MaxPortion,
	}
}

// Name returns the traded ticker.
func (s *RatioStrategy) Name() string { return s.params.Ticker }

// Init fits the prediction calibration curve when a nonzero degree is
// configured. NaN samples are dropped before fitting.
func (s *RatioStrategy) Init(_ context.Context) error {
	if s.params.Degree == 0 {
		return nil
	}
	x := make([]float64, 0, len(s.calX))
	y := make([]float64, 0, len(s.calY))
	for i := range s.calX {
		if math.IsNaN(s.calX[i]) || math.IsNaN(s.calY[i]) {
			continue
		}
		x = append(x, s.calX[i])
		y = append(y, s.calY[i])
	}
	fit, err := curve.FitReturns(x, y, s.params.Degree)
	if err != nil {
		return fmt.Errorf("%s calibration: %w", s.Name(), err)
	}
	s.fit = fit
	s.calibrated = true
	return nil
}

// Sizing returns the fixed capital fraction committed on a sized buy.
func (s *RatioStrategy) Sizing() float64 { return s.params.MaxPortion }

// OnRow compares the (calibrated) prediction against the close with the
// multiplier band. Rows with no prediction hold.
func (s *RatioStrategy) OnRow(row domain.PriceRow) (Decision, error) {
	pred := row.Pred
	if s.calibrated {
		pred = s.fit.Predict(pred)
	}
	switch {
	case pred > (1+s.params.Multiplier)*row.Close:
		return Decision{Action: domain.ActionBuy, Sized: true}, nil
	case pred < (1-s.params.Multiplier)*row.Close:
		return Decision{Action: domain.ActionSell}, nil
	default:
		return Decision{Action: domain.ActionHold}, nil
	}
}
