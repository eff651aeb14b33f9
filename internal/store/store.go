// Package store defines storage interfaces for persisting and retrieving
// domain objects: daily bars, regime classifier states, and run summaries.
// It also assembles the joined pair series that strategies replay.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"mekong/internal/domain"
)

// listingWarmup is the number of initial trading days excluded from every
// loaded series. Prices in the first two years after listing swing too wide
// to trade on.
const listingWarmup = 500

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end].
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RegimeStore persists and retrieves regime classifier states.
type RegimeStore interface {
	// SaveStates upserts a batch of classifier states.
	SaveStates(ctx context.Context, states []domain.RegimeState) error

	// StatesFor returns all states for a symbol keyed by date (formatted
	// 2006-01-02) then lag window.
	StatesFor(ctx context.Context, symbol string) (map[string]map[int]int, error)
}

// RunStore persists backtest and live-evaluation outcomes.
type RunStore interface {
	// SaveRun appends a run summary.
	SaveRun(ctx context.Context, run domain.RunSummary) error

	// ListRuns returns the most recent runs for a strategy, newest first,
	// up to limit.
	ListRuns(ctx context.Context, strategy string, limit int) ([]domain.RunSummary, error)
}

// LoadPairRows joins the two legs of a pair into the replayable series: an
// inner join on date, the traded leg's regime states attached, the listing
// warmup dropped. The second symbol is the traded leg; its close doubles as
// the row's trade price.
func LoadPairRows(ctx context.Context, bars BarStore, regimes RegimeStore, symbolX, symbolY string) ([]domain.PriceRow, error) {
	start := time.Time{}
	end := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

	barsX, err := bars.ReadBars(ctx, symbolX, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading %s bars: %w", symbolX, err)
	}
	barsY, err := bars.ReadBars(ctx, symbolY, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading %s bars: %w", symbolY, err)
	}
	if len(barsX) == 0 || len(barsY) == 0 {
		return nil, fmt.Errorf("pair %s_%s: %w", symbolX, symbolY, domain.ErrInsufficientData)
	}

	var states map[string]map[int]int
	if regimes != nil {
		states, err = regimes.StatesFor(ctx, symbolY)
		if err != nil {
			return nil, fmt.Errorf("reading %s states: %w", symbolY, err)
		}
	}

	byDateX := make(map[string]domain.Bar, len(barsX))
	for _, b := range barsX {
		day := b.Date.Format("2006-01-02")
		if _, dup := byDateX[day]; dup {
			return nil, fmt.Errorf("%s has duplicate bar on %s: %w", symbolX, day, domain.ErrDomain)
		}
		byDateX[day] = b
	}

	seenY := make(map[string]bool, len(barsY))
	rows := make([]domain.PriceRow, 0, len(barsY))
	for _, by := range barsY {
		day := by.Date.Format("2006-01-02")
		if seenY[day] {
			return nil, fmt.Errorf("%s has duplicate bar on %s: %w", symbolY, day, domain.ErrDomain)
		}
		seenY[day] = true

		bx, ok := byDateX[day]
		if !ok {
			continue
		}
		rows = append(rows, domain.PriceRow{
			Date:   by.Date,
			OpenX:  bx.Open,
			CloseX: bx.Close,
			OpenY:  by.Open,
			CloseY: by.Close,
			Close:  by.Close,
			Pred:   math.NaN(),
			Target: math.NaN(),
			Week:   domain.WeekOf(by.Date),
			States: states[day],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	if len(rows) <= listingWarmup {
		return nil, fmt.Errorf("pair %s_%s: %d joined rows inside the listing warmup: %w",
			symbolX, symbolY, len(rows), domain.ErrInsufficientData)
	}
	return rows[listingWarmup:], nil
}

// LoadTickerRows builds the single-asset series for the ratio strategy: the
// symbol's daily closes after the warmup, with fair-value predictions and
// realized targets attached by date where available.
func LoadTickerRows(ctx context.Context, bars BarStore, symbol string, preds map[string]float64, targets map[string]float64) ([]domain.PriceRow, error) {
	start := time.Time{}
	end := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

	all, err := bars.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading %s bars: %w", symbol, err)
	}
	if len(all) <= listingWarmup {
		return nil, fmt.Errorf("%s: %d bars inside the listing warmup: %w", symbol, len(all), domain.ErrInsufficientData)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })

	rows := make([]domain.PriceRow, 0, len(all)-listingWarmup)
	for _, b := range all[listingWarmup:] {
		day := b.Date.Format("2006-01-02")
		row := domain.PriceRow{
			Date:   b.Date,
			Close:  b.Close,
			Pred:   math.NaN(),
			Target: math.NaN(),
			Week:   domain.WeekOf(b.Date),
		}
		if p, ok := preds[day]; ok {
			row.Pred = p
		}
		if tgt, ok := targets[day]; ok {
			row.Target = tgt
		}
		rows = append(rows, row)
	}
	return rows, nil
}
