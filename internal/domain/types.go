// Package domain defines the core data model shared across the mekong
// engine: price rows, trade actions, trade records, and the error taxonomy.
package domain

import (
	"time"
)

// Action is the trade decision recorded for a single price row.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// RegimeLags enumerates the lag windows (in trading days) for which the
// external regime classifier supplies a state flag.
var RegimeLags = []int{3, 5, 20, 200}

// WeekKey identifies an ISO week. Two rows belong to the same trading week
// exactly when their WeekKeys are equal.
type WeekKey struct {
	Year int
	Week int
}

// WeekOf returns the WeekKey for the given date.
func WeekOf(t time.Time) WeekKey {
	y, w := t.ISOWeek()
	return WeekKey{Year: y, Week: w}
}

// PriceRow is a single time-stamped observation for a traded pair. Rows are
// immutable once loaded, indexed by date, strictly ascending, one row per
// trading day.
//
// For pair strategies X is the predictor leg and Y the traded leg; Close
// duplicates CloseY so the ledger and single-asset strategies can price
// trades without knowing about pairs. Pred and Target carry the fair-value
// model columns used by the ratio strategy only; they are NaN when absent.
type PriceRow struct {
	Date time.Time

	OpenX  float64
	CloseX float64
	OpenY  float64
	CloseY float64

	Close float64

	Pred   float64
	Target float64

	Week WeekKey

	// States maps lag window -> regime state (0 or 1) from the external
	// classifier. A missing lag means no state was available for this date.
	States map[int]int
}

// State returns the regime state for the given lag window. The second return
// value reports whether a state was present for that lag.
func (r PriceRow) State(lag int) (int, bool) {
	s, ok := r.States[lag]
	return s, ok
}

// TradeRecord is the per-row annotation produced by the ledger: exactly one
// is appended per price row, aligned 1:1 with the row sequence.
type TradeRecord struct {
	Date   time.Time
	Action Action
	Sizing float64 // fraction of deployable cash (BUY) or held lots (SELL)
	Filled float64 // lots filled; zero for HOLD and degenerate trades
	Fees   float64
	Equity float64
}

// Bar is one daily OHLCV observation for a single symbol as stored on disk.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// RegimeState is one classifier output: the directional-trend state of a
// symbol over a lag window on a given date.
type RegimeState struct {
	Symbol string
	Date   time.Time
	Lag    int
	State  int
}

// RunSummary is the persisted outcome of one backtest or live evaluation.
type RunSummary struct {
	Strategy         string
	RanAt            time.Time
	Live             bool
	LastAction       Action
	LastSizing       float64
	TotalReturn      float64
	AnnualizedReturn float64
}
