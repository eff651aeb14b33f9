package strategy

import (
	"fmt"

	"mekong/internal/config"
	"mekong/internal/domain"
)

// Cell is one leaf of a decision table: the action to take and whether it
// commits only the sized fraction.
type Cell struct {
	Action domain.Action
	Sized  bool
}

// Convenience cells used by the built-in tables.
var (
	hold     = Cell{Action: domain.ActionHold}
	sell     = Cell{Action: domain.ActionSell}
	buy      = Cell{Action: domain.ActionBuy}
	buySized = Cell{Action: domain.ActionBuy, Sized: true}
)

// GateCond is one disjunct of a regime gate: the classifier state for the
// given lag window must equal Want.
type GateCond struct {
	Lag  int
	Want int
}

// Half is one half of a decision table, selected by whether the traded leg
// is over- or under-valued. The Signal cells apply when the traded leg's
// return is positive AND the regime gate passes; the Default cells cover
// everything else. Within each pair the first cell is for a positive
// predictor-leg return, the second otherwise.
type Half struct {
	Gate    []GateCond // disjunction; empty always passes
	Signal  [2]Cell
	Default [2]Cell
}

// Table is a complete pair decision table.
type Table struct {
	Over  Half
	Under Half
}

// gatePasses evaluates the disjunction against the row's regime states. A
// lag with no recorded state never satisfies its condition.
func gatePasses(gate []GateCond, row domain.PriceRow) bool {
	if len(gate) == 0 {
		return true
	}
	for _, g := range gate {
		if s, ok := row.State(g.Lag); ok && s == g.Want {
			return true
		}
	}
	return false
}

// Decide resolves the table for one row. Overvaluation ties break toward the
// over-valued half; the y>0 boundary itself breaks toward the default cells.
func (t Table) Decide(returnY, predY, returnX, multiplier float64, row domain.PriceRow) Cell {
	half := t.Under
	if returnY >= multiplier*predY {
		half = t.Over
	}
	if returnY > 0 && gatePasses(half.Gate, row) {
		if returnX > 0 {
			return half.Signal[0]
		}
		return half.Signal[1]
	}
	if returnX > 0 {
		return half.Default[0]
	}
	return half.Default[1]
}

// ---------------------------------------------------------------------------
// Config conversion
// ---------------------------------------------------------------------------

// TableFromConfig converts a YAML table override into a Table.
func TableFromConfig(tc *config.TableConfig) (Table, error) {
	over, err := halfFromConfig(tc.Over)
	if err != nil {
		return Table{}, fmt.Errorf("over half: %w", err)
	}
	under, err := halfFromConfig(tc.Under)
	if err != nil {
		return Table{}, fmt.Errorf("under half: %w", err)
	}
	return Table{Over: over, Under: under}, nil
}

func halfFromConfig(hc config.HalfConfig) (Half, error) {
	var h Half
	for _, g := range hc.Gate {
		lag, want, err := config.ParseGateCond(g)
		if err != nil {
			return Half{}, err
		}
		h.Gate = append(h.Gate, GateCond{Lag: lag, Want: want})
	}
	var err error
	for i := 0; i < 2; i++ {
		if h.Signal[i], err = cellFromName(hc.Signal[i]); err != nil {
			return Half{}, err
		}
		if h.Default[i], err = cellFromName(hc.Default[i]); err != nil {
			return Half{}, err
		}
	}
	return h, nil
}

func cellFromName(name string) (Cell, error) {
	switch name {
	case "buy":
		return buy, nil
	case "buy_sized":
		return buySized, nil
	case "sell":
		return sell, nil
	case "hold":
		return hold, nil
	default:
		return Cell{}, fmt.Errorf("unknown table action %q", name)
	}
}
