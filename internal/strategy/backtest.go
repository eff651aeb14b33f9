package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"mekong/internal/domain"
	"mekong/internal/ledger"
	"mekong/internal/returns"
)

// Result is the consolidated outcome of one run: the trade journal plus the
// derived return series and summary figures.
type Result struct {
	Records []domain.TradeRecord

	// Returns is the day-over-day equity return series. The first element is
	// NaN; there is no prior equity to compare against.
	Returns []float64

	// AccumReturns is equity relative to initial capital, per day.
	AccumReturns []float64

	// ActionMeans maps each action to the mean daily return of the days it
	// was taken on.
	ActionMeans map[domain.Action]float64

	TotalReturn      float64
	AnnualizedReturn float64
}

// Backtester replays a price series through a strategy and a fresh ledger.
type Backtester struct {
	InitialCapital float64
	TaxRate        float64
	TransactionFee float64
}

// Run initializes the strategy, replays every row through it in order, and
// consolidates the resulting journal. Rows must be strictly increasing by
// date.
func (b Backtester) Run(ctx context.Context, strat Strategy, rows []domain.PriceRow) (Result, error) {
	if err := validateRows(rows); err != nil {
		return Result{}, err
	}
	if err := strat.Init(ctx); err != nil {
		return Result{}, fmt.Errorf("init %s: %w", strat.Name(), err)
	}

	led := ledger.New(b.InitialCapital, b.TaxRate, b.TransactionFee)
	for _, row := range rows {
		decision, err := strat.OnRow(row)
		if err != nil {
			return Result{}, fmt.Errorf("%s at %s: %w", strat.Name(), row.Date.Format("2006-01-02"), err)
		}
		if err := apply(led, decision, strat, row); err != nil {
			return Result{}, fmt.Errorf("%s at %s: %w", strat.Name(), row.Date.Format("2006-01-02"), err)
		}
	}

	return consolidate(led.Records(), b.InitialCapital, len(rows))
}

// apply translates a decision into a ledger operation. Sized buys commit
// the strategy's current sizing fraction; unsized buys commit all cash and
// sells always liquidate the full position.
func apply(led *ledger.Ledger, d Decision, strat Strategy, row domain.PriceRow) error {
	switch d.Action {
	case domain.ActionBuy:
		fraction := 1.0
		if d.Sized {
			fraction = strat.Sizing()
		}
		_, err := led.Buy(row, fraction)
		return err
	case domain.ActionSell:
		_, err := led.Sell(row, 1)
		return err
	case domain.ActionHold:
		led.Hold(row)
		return nil
	default:
		return fmt.Errorf("%w: action %q", domain.ErrDomain, d.Action)
	}
}

func validateRows(rows []domain.PriceRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: empty price series", domain.ErrInsufficientData)
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].Date.After(rows[i-1].Date) {
			return fmt.Errorf("%w: rows out of order at %s", domain.ErrDomain,
				rows[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

func consolidate(records []domain.TradeRecord, initialCapital float64, days int) (Result, error) {
	res := Result{
		Records:      records,
		Returns:      make([]float64, len(records)),
		AccumReturns: make([]float64, len(records)),
		ActionMeans:  make(map[domain.Action]float64),
	}

	byAction := make(map[domain.Action][]float64)
	for i, rec := range records {
		if i == 0 {
			res.Returns[i] = math.NaN()
		} else {
			res.Returns[i] = rec.Equity/records[i-1].Equity - 1
			byAction[rec.Action] = append(byAction[rec.Action], res.Returns[i])
		}
		res.AccumReturns[i] = rec.Equity/initialCapital - 1
	}
	for action, series := range byAction {
		res.ActionMeans[action] = stat.Mean(series, nil)
	}

	res.TotalReturn = res.AccumReturns[len(res.AccumReturns)-1]
	var err error
	if res.AnnualizedReturn, err = returns.Annualize(res.TotalReturn, days); err != nil {
		return Result{}, fmt.Errorf("annualizing over %d days: %w", days, err)
	}
	return res, nil
}

// WeeklyReturns reduces a paired daily series to per-ISO-week returns of
// both legs, computed from each week's last close against the previous
// week's. These are the samples the pair fair-value curve is fitted on.
func WeeklyReturns(rows []domain.PriceRow) (x, y []float64) {
	type weekClose struct {
		week   domain.WeekKey
		closeX float64
		closeY float64
	}
	var weeks []weekClose
	for _, row := range rows {
		if len(weeks) == 0 || weeks[len(weeks)-1].week != row.Week {
			weeks = append(weeks, weekClose{week: row.Week})
		}
		weeks[len(weeks)-1].closeX = row.CloseX
		weeks[len(weeks)-1].closeY = row.CloseY
	}
	sort.SliceStable(weeks, func(i, j int) bool {
		if weeks[i].week.Year != weeks[j].week.Year {
			return weeks[i].week.Year < weeks[j].week.Year
		}
		return weeks[i].week.Week < weeks[j].week.Week
	})
	for i := 1; i < len(weeks); i++ {
		x = append(x, weeks[i].closeX/weeks[i-1].closeX-1)
		y = append(y, weeks[i].closeY/weeks[i-1].closeY-1)
	}
	return x, y
}
