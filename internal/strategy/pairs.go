package strategy

import (
	"fmt"

	"mekong/internal/config"
)

// gate builds the common three-condition regime gate used by most tuned
// pairs.
func gate(conds ...GateCond) []GateCond { return conds }

func cond(lag, want int) GateCond { return GateCond{Lag: lag, Want: want} }

// BuiltinPairs returns the tuned parameter sets shipped with the engine.
// Each entry pins the anchor calendar, the curve degree, the valuation
// multiplier, the sizing caps, and the full decision table.
func BuiltinPairs() []PairParams {
	return []PairParams{
		{
			X: "CTG", Y: "HDB", Anchor: AnchorWeekly,
			Degree: 2, Multiplier: 12, MaxDev: 0.05, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 0), cond(200, 0)),
					Signal:  [2]Cell{hold, sell},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 1), cond(5, 1), cond(200, 1)),
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{buy, buy},
				},
			},
		},
		{
			X: "MBB", Y: "VND", Anchor: AnchorWeekly,
			Degree: 1, Multiplier: 8, MaxDev: 0.05, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 0), cond(200, 0)),
					Signal:  [2]Cell{hold, sell},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 1), cond(5, 1), cond(200, 1)),
					Signal:  [2]Cell{buy, buy},
					Default: [2]Cell{buy, buy},
				},
			},
		},
		{
			X: "VCI", Y: "FTS", Anchor: AnchorWeekly,
			Degree: 1, Multiplier: 13, MaxDev: 0.05, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 1), cond(200, 1)),
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 1), cond(20, 0), cond(200, 0)),
					Signal:  [2]Cell{buy, buy},
					Default: [2]Cell{buy, buy},
				},
			},
		},
		{
			X: "VCI", Y: "CTS", Anchor: AnchorWeekly,
			Degree: 1, Multiplier: 5, MaxDev: 0.1, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 1), cond(5, 0), cond(200, 0)),
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 0), cond(20, 1), cond(200, 1)),
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{hold, buy},
				},
			},
		},
		{
			X: "MBS", Y: "BSI", Anchor: AnchorWeekly,
			Degree: 2, Multiplier: 6, MaxDev: 0.1, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 0), cond(200, 1)),
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 0), cond(20, 0), cond(200, 1)),
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{buySized, buy},
				},
			},
		},
		{
			X: "CTS", Y: "FTS", Anchor: AnchorWeekly,
			Degree: 2, Multiplier: 10, MaxDev: 0.25, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 0), cond(200, 1)),
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 0), cond(20, 0), cond(200, 0)),
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{hold, buy},
				},
			},
		},
		{
			X: "VGS", Y: "TLH", Anchor: AnchorWeekly,
			Degree: 1, Multiplier: 7, MaxDev: 0.1, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 0), cond(200, 0)),
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 0), cond(20, 0), cond(200, 1)),
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{buy, buy},
				},
			},
		},
		{
			X: "VCG", Y: "DIG", Anchor: AnchorWeekly,
			Degree: 1, Multiplier: 15, MaxDev: 0.05, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 0), cond(200, 0)),
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 1), cond(20, 1), cond(200, 1)),
					Signal:  [2]Cell{buy, buy},
					Default: [2]Cell{buy, hold},
				},
			},
		},
		{
			X: "PLX", Y: "PVS", Anchor: AnchorWeekly,
			Degree: 1, Multiplier: 15, MaxDev: 0.05, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Signal:  [2]Cell{hold, sell},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{buy, hold},
				},
			},
		},
		{
			X: "PLP", Y: "DRH", Anchor: AnchorMonthly,
			Degree: 1, Multiplier: 6, MaxDev: 0.01, MaxPortion: 0.1,
			Table: Table{
				Over: Half{
					Gate:    gate(cond(3, 0), cond(5, 1), cond(200, 0)),
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Gate:    gate(cond(3, 0), cond(20, 1), cond(200, 0)),
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{hold, buy},
				},
			},
		},
		{
			X: "PDR", Y: "MBS", Anchor: AnchorMonthly,
			Degree: 2, Multiplier: 5.5, MaxDev: 0.02, MaxPortion: 1,
			Table: Table{
				Over: Half{
					Signal:  [2]Cell{hold, hold},
					Default: [2]Cell{hold, sell},
				},
				Under: Half{
					Signal:  [2]Cell{buy, hold},
					Default: [2]Cell{buy, buy},
				},
			},
		},
		{
			X: "HAP", Y: "EVG", Anchor: AnchorMonthly,
			Degree: 1, Multiplier: 6, MaxDev: 0.01, MaxPortion: 0.1,
			Table: monthlyMomentumTable(),
		},
		{
			X: "GSP", Y: "NSH", Anchor: AnchorMonthly,
			Degree: 1, Multiplier: 4.5, MaxDev: 0.01, MaxPortion: 0.1,
			Table: monthlyMomentumTable(),
		},
		{
			X: "TNI", Y: "ITQ", Anchor: AnchorMonthly,
			Degree: 2, Multiplier: 2.5, MaxDev: 0.01, MaxPortion: 0.1,
			Table: monthlyMomentumTable(),
		},
	}
}

// monthlyMomentumTable is the ungated table shared by the small-cap monthly
// pairs: sell an overvalued leg only when the predictor leg is also down,
// buy an undervalued leg with the predictor leg up.
func monthlyMomentumTable() Table {
	return Table{
		Over: Half{
			Signal:  [2]Cell{hold, sell},
			Default: [2]Cell{hold, sell},
		},
		Under: Half{
			Signal:  [2]Cell{buy, hold},
			Default: [2]Cell{buy, buy},
		},
	}
}

// DefaultTable is the ungated table used for pairs outside the tuned
// roster: sell an overvalued leg only when both legs are down, buy an
// undervalued leg at full size on momentum and sized otherwise.
func DefaultTable() Table {
	return Table{
		Over: Half{
			Signal:  [2]Cell{hold, hold},
			Default: [2]Cell{hold, sell},
		},
		Under: Half{
			Signal:  [2]Cell{buy, hold},
			Default: [2]Cell{buySized, buySized},
		},
	}
}

// PairFromConfig builds a parameter set from a configured pair. A known
// built-in pair contributes its decision table when the configuration does
// not override it; any other pair falls back to the ungated default table.
func PairFromConfig(pc config.PairConfig) (PairParams, error) {
	params := PairParams{
		X: pc.X, Y: pc.Y,
		Anchor:     Anchor(pc.Anchor),
		Degree:     pc.Degree,
		Multiplier: pc.Multiplier,
		MaxDev:     pc.MaxDev,
		MaxPortion: pc.MaxPortion,
	}

	if pc.Table != nil {
		table, err := TableFromConfig(pc.Table)
		if err != nil {
			return PairParams{}, fmt.Errorf("pair %s: %w", params.Name(), err)
		}
		params.Table = table
		return params, nil
	}

	for _, builtin := range BuiltinPairs() {
		if builtin.Name() == params.Name() {
			params.Table = builtin.Table
			return params, nil
		}
	}
	params.Table = DefaultTable()
	return params, nil
}
