package strategy

import (
	"context"
	"fmt"
	"math"

	"mekong/internal/curve"
	"mekong/internal/domain"
	"mekong/internal/returns"
	"mekong/internal/util"
)

// Anchor selects the calendar basis a pair strategy rebases against.
type Anchor string

const (
	// AnchorWeekly rebases reference prices at each new ISO week and
	// compares returns on a 5-trading-day horizon.
	AnchorWeekly Anchor = "weekly"

	// AnchorMonthly rebases at the first trading day of each month and uses
	// a (days in month - 1) horizon. The first trading day itself has no
	// lookback and always holds.
	AnchorMonthly Anchor = "monthly"
)

// weekHorizon is the trading-day horizon a weekly pair return is compared
// on.
const weekHorizon = 5

// baseSizing is the committed capital fraction when no deviation-based
// sizing policy applies.
const baseSizing = 0.01

// PairParams is the complete tuned parameter set for one traded pair: the
// fit degree, the over/under-valuation threshold factor, the sizing caps,
// the calendar anchor, and the decision table.
type PairParams struct {
	X string // predictor leg
	Y string // traded leg

	Anchor     Anchor
	Degree     int
	Multiplier float64
	MaxDev     float64
	MaxPortion float64

	Table Table
}

// Name returns the registry key for this pair, "X_Y".
func (p PairParams) Name() string {
	return p.X + "_" + p.Y
}

// String renders the tuned parameters for notifications and logs.
func (p PairParams) String() string {
	return fmt.Sprintf("anchor=%s degree=%d multiplier=%g max_dev=%g max_portion=%g",
		p.Anchor, p.Degree, p.Multiplier, p.MaxDev, p.MaxPortion)
}

// PairStrategy interprets a pair decision table over a replayed price
// series. It carries the calendar state machine (week or month), the fitted
// fair-value curve, and the deviation history used for position sizing.
type PairStrategy struct {
	params PairParams

	// paired periodic returns for the one-time curve fit
	fitX, fitY []float64

	fit curve.Fit

	// weekly anchor state
	haveWeek  bool
	week      domain.WeekKey
	daysPast  int
	weekOpenX float64
	weekOpenY float64

	// monthly anchor state
	haveMonth   bool
	monthYear   int
	monthMonth  int
	monthCloseX float64
	monthCloseY float64
	monthDays   int

	deviation []float64
}

var _ Strategy = (*PairStrategy)(nil)

// NewPairStrategy creates a pair strategy from its parameter set and the
// paired historical returns used to fit the fair-value curve.
func NewPairStrategy(params PairParams, fitX, fitY []float64) *PairStrategy {
	return &PairStrategy{params: params, fitX: fitX, fitY: fitY}
}

// Name returns the pair name, "X_Y".
func (s *PairStrategy) Name() string { return s.params.Name() }

// Params returns the parameter set the strategy runs with.
func (s *PairStrategy) Params() PairParams { return s.params }

// Init fits the fair-value curve once from the historical paired returns.
// The fit is immutable for the rest of the run.
func (s *PairStrategy) Init(_ context.Context) error {
	fit, err := curve.FitReturns(s.fitX, s.fitY, s.params.Degree)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	s.fit = fit
	return nil
}

// Sizing returns the deviation-magnitude sizing fraction: the last recorded
// deviation relative to the configured cap, bounded by the maximum portion.
// Before any deviation is recorded it falls back to the base fraction.
func (s *PairStrategy) Sizing() float64 {
	if len(s.deviation) == 0 {
		return baseSizing
	}
	last := s.deviation[len(s.deviation)-1]
	return math.Min(math.Abs(last)/s.params.MaxDev, s.params.MaxPortion)
}

// Deviations returns the append-only predicted-minus-actual return history.
func (s *PairStrategy) Deviations() []float64 { return s.deviation }

// OnRow advances the calendar state machine and resolves the decision table
// for the row.
func (s *PairStrategy) OnRow(row domain.PriceRow) (Decision, error) {
	if s.params.Anchor == AnchorMonthly {
		return s.onRowMonthly(row)
	}
	return s.onRowWeekly(row)
}

func (s *PairStrategy) onRowWeekly(row domain.PriceRow) (Decision, error) {
	if !s.haveWeek || s.week != row.Week {
		// New ISO week: reset the day counter and capture both legs' opens
		// as the week baseline.
		s.haveWeek = true
		s.week = row.Week
		s.daysPast = 1
		s.weekOpenX = row.OpenX
		s.weekOpenY = row.OpenY
	} else {
		s.daysPast++
	}

	returnX, err := returns.Resample(row.CloseX/s.weekOpenX-1, 1, s.daysPast)
	if err != nil {
		return Decision{}, fmt.Errorf("%s leg %s: %w", s.Name(), s.params.X, err)
	}
	returnY, err := returns.Resample(row.CloseY/s.weekOpenY-1, 1, s.daysPast)
	if err != nil {
		return Decision{}, fmt.Errorf("%s leg %s: %w", s.Name(), s.params.Y, err)
	}

	weeklyX, err := returns.Resample(returnX, weekHorizon, 1)
	if err != nil {
		return Decision{}, err
	}
	predY, err := returns.Resample(s.fit.Predict(weeklyX), 1, weekHorizon)
	if err != nil {
		return Decision{}, err
	}

	s.deviation = append(s.deviation, predY-returnY)

	cell := s.params.Table.Decide(returnY, predY, returnX, s.params.Multiplier, row)
	return Decision{Action: cell.Action, Sized: cell.Sized}, nil
}

func (s *PairStrategy) onRowMonthly(row domain.PriceRow) (Decision, error) {
	if !s.haveMonth || s.monthYear != row.Date.Year() || s.monthMonth != int(row.Date.Month()) {
		// First trading day of a new month: capture the baseline closes.
		// There is no lookback yet, so the day is always a HOLD.
		s.haveMonth = true
		s.monthYear = row.Date.Year()
		s.monthMonth = int(row.Date.Month())
		s.monthCloseX = row.CloseX
		s.monthCloseY = row.CloseY
		s.monthDays = 0
		return Decision{Action: domain.ActionHold}, nil
	}
	s.monthDays++

	horizon := util.DaysInMonth(row.Date) - 1

	returnX, err := returns.Resample(row.CloseX/s.monthCloseX-1, 1, s.monthDays)
	if err != nil {
		return Decision{}, fmt.Errorf("%s leg %s: %w", s.Name(), s.params.X, err)
	}
	returnY, err := returns.Resample(row.CloseY/s.monthCloseY-1, 1, s.monthDays)
	if err != nil {
		return Decision{}, fmt.Errorf("%s leg %s: %w", s.Name(), s.params.Y, err)
	}

	monthlyX, err := returns.Resample(returnX, horizon, 1)
	if err != nil {
		return Decision{}, err
	}
	predY, err := returns.Resample(s.fit.Predict(monthlyX), 1, horizon)
	if err != nil {
		return Decision{}, err
	}

	s.deviation = append(s.deviation, predY-returnY)

	cell := s.params.Table.Decide(returnY, predY, returnX, s.params.Multiplier, row)
	return Decision{Action: cell.Action, Sized: cell.Sized}, nil
}
