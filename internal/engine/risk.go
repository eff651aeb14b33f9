package engine

import (
	"mekong/internal/strategy"
)

// DefaultMinAnnualized is the historical annualized return a pair must have
// earned in simulation before its live recommendations are worth acting on.
const DefaultMinAnnualized = 0.35

// TradeGate screens live recommendations against the pair's simulated track
// record. Pairs below the threshold still produce journals and summaries but
// their recommendations are flagged as not tradable.
type TradeGate struct {
	minAnnualized float64
}

// NewTradeGate creates a TradeGate with the given annualized-return floor.
func NewTradeGate(minAnnualized float64) *TradeGate {
	return &TradeGate{minAnnualized: minAnnualized}
}

// Tradable reports whether the run's historical annualized return clears the
// floor.
func (g *TradeGate) Tradable(res strategy.Result) bool {
	return res.AnnualizedReturn >= g.minAnnualized
}
