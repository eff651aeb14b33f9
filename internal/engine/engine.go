// Package engine coordinates a full run: loading the joined series,
// constructing the strategy, replaying it through the simulator, and fanning
// the outcome out to reports, persistence, and notifications.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mekong/internal/config"
	"mekong/internal/domain"
	"mekong/internal/feed"
	"mekong/internal/notify"
	"mekong/internal/report"
	"mekong/internal/store"
	"mekong/internal/strategy"
)

// Engine wires the storage, feed, and notification collaborators around the
// strategy runner.
type Engine struct {
	cfg      *config.Config
	bars     store.BarStore
	regimes  store.RegimeStore
	runs     store.RunStore
	quoter   feed.Quoter
	notifier notify.Notifier
	registry *strategy.Registry
	gate     *TradeGate
	log      *slog.Logger
}

// New creates an Engine wired with the given dependencies. The quoter may be
// nil when only backtests will run.
func New(
	cfg *config.Config,
	bars store.BarStore,
	regimes store.RegimeStore,
	runs store.RunStore,
	quoter feed.Quoter,
	notifier notify.Notifier,
	log *slog.Logger,
) *Engine {
	registry := strategy.NewRegistry()
	for _, pc := range cfg.Pairs {
		params, err := strategy.PairFromConfig(pc)
		if err != nil {
			// Only a malformed table override can fail here; unknown pairs
			// fall back to the ungated default table.
			log.Warn("skipping configured pair", "pair", pc.X+"_"+pc.Y, "err", err)
			continue
		}
		registry.Register(params)
	}
	return &Engine{
		cfg:      cfg,
		bars:     bars,
		regimes:  regimes,
		runs:     runs,
		quoter:   quoter,
		notifier: notifier,
		registry: registry,
		gate:     NewTradeGate(DefaultMinAnnualized),
		log:      log,
	}
}

// Registry exposes the pair registry, mainly for listing.
func (e *Engine) Registry() *strategy.Registry { return e.registry }

// backtester builds the simulator from the run-level configuration.
func (e *Engine) backtester() strategy.Backtester {
	return strategy.Backtester{
		InitialCapital: e.cfg.Backtest.InitialCapital,
		TaxRate:        e.cfg.Backtest.TaxRate,
		TransactionFee: e.cfg.Backtest.TransactionFee,
	}
}

// pairStrategy loads the pair's series and builds the strategy with its
// fitted-curve samples.
func (e *Engine) pairStrategy(ctx context.Context, params strategy.PairParams) (*strategy.PairStrategy, []domain.PriceRow, error) {
	rows, err := store.LoadPairRows(ctx, e.bars, e.regimes, params.X, params.Y)
	if err != nil {
		return nil, nil, err
	}
	fitX, fitY := strategy.WeeklyReturns(rows)
	return strategy.NewPairStrategy(params, fitX, fitY), rows, nil
}

// RunBacktest replays the named pair over its full stored history and writes
// the journal and summary.
func (e *Engine) RunBacktest(ctx context.Context, name string) (strategy.Result, error) {
	params, ok := e.registry.Get(name)
	if !ok {
		return strategy.Result{}, fmt.Errorf("unknown pair %q", name)
	}

	strat, rows, err := e.pairStrategy(ctx, params)
	if err != nil {
		return strategy.Result{}, err
	}

	res, err := e.backtester().Run(ctx, strat, rows)
	if err != nil {
		return strategy.Result{}, err
	}

	if err := e.finishRun(ctx, name, false, res); err != nil {
		return strategy.Result{}, err
	}
	e.log.Info("backtest finished", "pair", name,
		"rows", len(rows),
		"total_return", res.TotalReturn,
		"annualized_return", res.AnnualizedReturn)
	return res, nil
}

// ratioStrategy loads the ticker's series with its fair-value predictions and
// builds the strategy calibrated on the rows where both prediction and
// realized target are known.
func (e *Engine) ratioStrategy(ctx context.Context, rc config.RatioConfig) (*strategy.RatioStrategy, []domain.PriceRow, error) {
	var preds, targets map[string]float64
	if rc.PredPath != "" {
		var err error
		if preds, targets, err = store.LoadPredictions(rc.PredPath); err != nil {
			return nil, nil, err
		}
	}
	rows, err := store.LoadTickerRows(ctx, e.bars, rc.Ticker, preds, targets)
	if err != nil {
		return nil, nil, err
	}
	calX := make([]float64, len(rows))
	calY := make([]float64, len(rows))
	for i, r := range rows {
		calX[i] = r.Pred
		calY[i] = r.Target
	}
	return strategy.NewRatioStrategy(strategy.RatioFromConfig(rc), calX, calY), rows, nil
}

// RunRatioBacktest replays the configured single-asset fair-value strategy
// for the given ticker over its full stored history.
func (e *Engine) RunRatioBacktest(ctx context.Context, ticker string) (strategy.Result, error) {
	var rc config.RatioConfig
	found := false
	for _, r := range e.cfg.Ratios {
		if r.Ticker == ticker {
			rc = r
			found = true
			break
		}
	}
	if !found {
		return strategy.Result{}, fmt.Errorf("unknown ratio ticker %q", ticker)
	}

	strat, rows, err := e.ratioStrategy(ctx, rc)
	if err != nil {
		return strategy.Result{}, err
	}

	res, err := e.backtester().Run(ctx, strat, rows)
	if err != nil {
		return strategy.Result{}, err
	}

	if err := e.finishRun(ctx, ticker, false, res); err != nil {
		return strategy.Result{}, err
	}
	e.log.Info("ratio backtest finished", "ticker", ticker,
		"rows", len(rows),
		"total_return", res.TotalReturn,
		"annualized_return", res.AnnualizedReturn)
	return res, nil
}

// RunAllBacktests runs every registered pair, continuing past individual
// failures. It returns the first error encountered, if any.
func (e *Engine) RunAllBacktests(ctx context.Context) error {
	var firstErr error
	for _, name := range e.registry.List() {
		if _, err := e.RunBacktest(ctx, name); err != nil {
			e.log.Error("backtest failed", "pair", name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RunLive evaluates the named pair against today's live quotes and sends the
// recommendation. A missing quote aborts the evaluation with a single
// notification; no recommendation is produced from stale closes.
func (e *Engine) RunLive(ctx context.Context, name string) (strategy.Result, error) {
	params, ok := e.registry.Get(name)
	if !ok {
		return strategy.Result{}, fmt.Errorf("unknown pair %q", name)
	}
	if e.quoter == nil {
		return strategy.Result{}, fmt.Errorf("live evaluation for %s: no quote feed configured", name)
	}

	strat, rows, err := e.pairStrategy(ctx, params)
	if err != nil {
		return strategy.Result{}, err
	}

	quoteX, err := e.quoter.Quote(ctx, params.X)
	if err != nil {
		e.notifyQuoteFailure(ctx, name, params.X, err)
		return strategy.Result{}, err
	}
	quoteY, err := e.quoter.Quote(ctx, params.Y)
	if err != nil {
		e.notifyQuoteFailure(ctx, name, params.Y, err)
		return strategy.Result{}, err
	}

	rows, err = appendLiveRow(ctx, rows, e.regimes, params.Y, quoteX, quoteY)
	if err != nil {
		return strategy.Result{}, err
	}

	res, err := e.backtester().Run(ctx, strat, rows)
	if err != nil {
		return strategy.Result{}, err
	}

	if err := e.finishRun(ctx, name, true, res); err != nil {
		return strategy.Result{}, err
	}

	last := res.Records[len(res.Records)-1]
	msg := report.LiveMessage(name, params.String(), quoteY.Price, last, res)
	if !e.gate.Tradable(res) {
		msg += " [below annual return threshold, do not trade]"
	}
	if err := e.notifier.Send(ctx, msg); err != nil {
		return strategy.Result{}, err
	}

	e.log.Info("live evaluation finished", "pair", name,
		"action", last.Action, "sizing", last.Sizing, "price", quoteY.Price)
	return res, nil
}

// finishRun writes the CSV journal and persists the run summary.
func (e *Engine) finishRun(ctx context.Context, name string, live bool, res strategy.Result) error {
	if _, err := report.WriteCSVFile(e.cfg.Storage.ResultsDir, name, res); err != nil {
		return fmt.Errorf("writing results for %s: %w", name, err)
	}
	if err := report.Persist(ctx, e.runs, name, live, time.Now().UTC(), res); err != nil {
		return fmt.Errorf("persisting run for %s: %w", name, err)
	}
	return nil
}

func (e *Engine) notifyQuoteFailure(ctx context.Context, pair, symbol string, cause error) {
	e.log.Error("no live price obtained", "pair", pair, "symbol", symbol, "err", cause)
	if err := e.notifier.Send(ctx, fmt.Sprintf("no live price obtained for %s (%s)", pair, symbol)); err != nil {
		e.log.Error("notification failed", "err", err)
	}
}

// appendLiveRow extends the stored series with today's quotes. When the
// quote date matches the last stored bar the closes are replaced in place;
// otherwise a synthetic row is appended whose opens fall back to the quoted
// prices, since no opening auction data is available intraday.
func appendLiveRow(ctx context.Context, rows []domain.PriceRow, regimes store.RegimeStore, symbolY string, quoteX, quoteY feed.Quote) ([]domain.PriceRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("live row: %w", domain.ErrInsufficientData)
	}
	last := rows[len(rows)-1]

	if last.Date.Format("2006-01-02") == quoteY.Date.Format("2006-01-02") {
		last.CloseX = quoteX.Price
		last.CloseY = quoteY.Price
		last.Close = quoteY.Price
		rows[len(rows)-1] = last
		return rows, nil
	}
	if !quoteY.Date.After(last.Date) {
		return nil, fmt.Errorf("live quote dated %s behind stored series ending %s: %w",
			quoteY.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), domain.ErrMissingExternalData)
	}

	row := domain.PriceRow{
		Date:   quoteY.Date,
		OpenX:  quoteX.Price,
		CloseX: quoteX.Price,
		OpenY:  quoteY.Price,
		CloseY: quoteY.Price,
		Close:  quoteY.Price,
		Week:   domain.WeekOf(quoteY.Date),
	}
	if regimes != nil {
		states, err := regimes.StatesFor(ctx, symbolY)
		if err != nil {
			return nil, err
		}
		row.States = states[quoteY.Date.Format("2006-01-02")]
	}
	return append(rows, row), nil
}
