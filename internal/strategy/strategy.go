// Package strategy implements per-row trade decisioning: the decision-table
// interpreter for pair strategies, the fair-value ratio strategy, and the
// backtest runner that replays a price table through a strategy.
package strategy

import (
	"context"
	"sort"

	"mekong/internal/domain"
)

// Decision is the outcome of one strategy step for one price row.
type Decision struct {
	Action domain.Action

	// Sized commits only the strategy's sizing fraction instead of the full
	// available capital or holding.
	Sized bool
}

// Strategy is the interface all trading strategies implement. OnRow is
// called exactly once per price row, strictly in date order; strategies may
// carry state across rows (week trackers, deviation history).
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init performs one-time setup before the replay begins, such as the
	// curve fit on the historical sample.
	Init(ctx context.Context) error

	// OnRow maps a price row to a trade decision using the carried state.
	OnRow(row domain.PriceRow) (Decision, error)

	// Sizing returns the fraction of deployable capital or shares to commit
	// when the current decision is sized.
	Sizing() float64
}

// Registry holds the decision-table parameter sets for the traded pairs,
// keyed by pair name ("X_Y"). Tables are data, not subclasses: registering a
// pair is all it takes to make it runnable.
type Registry struct {
	pairs map[string]PairParams
}

// NewRegistry creates a Registry seeded with the built-in tuned pairs.
func NewRegistry() *Registry {
	r := &Registry{pairs: make(map[string]PairParams)}
	for _, p := range BuiltinPairs() {
		r.Register(p)
	}
	return r
}

// Register adds (or replaces) a pair parameter set, keyed by its Name().
func (r *Registry) Register(p PairParams) {
	r.pairs[p.Name()] = p
}

// Get retrieves a pair parameter set by name. The second return value
// reports whether the pair was found.
func (r *Registry) Get(name string) (PairParams, bool) {
	p, ok := r.pairs[name]
	return p, ok
}

// List returns a sorted slice of all registered pair names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.pairs))
	for name := range r.pairs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
