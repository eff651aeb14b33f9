// Package report renders run outcomes: a CSV journal per strategy, the
// console summary, and the persisted run record.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"mekong/internal/domain"
	"mekong/internal/store"
	"mekong/internal/strategy"
)

// numFormat is the fixed precision used for all reported figures.
const numFormat = "%.4f"

// WriteCSV renders the full trade journal with the derived return columns.
func WriteCSV(w io.Writer, res strategy.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "action", "sizing", "filled", "fees", "equity", "returns", "accum_returns"}); err != nil {
		return err
	}
	for i, rec := range res.Records {
		row := []string{
			rec.Date.Format("2006-01-02"),
			string(rec.Action),
			formatFloat(rec.Sizing),
			strconv.FormatFloat(rec.Filled, 'f', 0, 64),
			formatFloat(rec.Fees),
			formatFloat(rec.Equity),
			formatFloat(res.Returns[i]),
			formatFloat(res.AccumReturns[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile renders the journal to <dir>/<name>.csv, creating dir as
// needed.
func WriteCSVFile(dir, name string, res strategy.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteCSV(f, res); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Summary renders the consolidated figures as printable lines.
func Summary(name string, res strategy.Result) []string {
	lines := []string{
		fmt.Sprintf("strategy: %s", name),
		fmt.Sprintf("total_returns: "+numFormat, res.TotalReturn),
		fmt.Sprintf("annualized_returns: "+numFormat, res.AnnualizedReturn),
	}

	actions := make([]string, 0, len(res.ActionMeans))
	for action := range res.ActionMeans {
		actions = append(actions, string(action))
	}
	sort.Strings(actions)
	for _, action := range actions {
		lines = append(lines, fmt.Sprintf("action_values[%s]: "+numFormat, action, res.ActionMeans[domain.Action(action)]))
	}
	return lines
}

// LiveMessage renders the recommendation message for a live evaluation,
// echoing the parameter set the run used. BUY sizing is the fraction of
// remaining cash, SELL sizing the fraction of held lots.
func LiveMessage(name, params string, price float64, rec domain.TradeRecord, res strategy.Result) string {
	return fmt.Sprintf(
		"%s [%s] price "+numFormat+": %s, sizing "+numFormat+" (historical annual "+numFormat+")",
		name, params, price, rec.Action, rec.Sizing, res.AnnualizedReturn)
}

// Persist records the run outcome in the run store.
func Persist(ctx context.Context, runs store.RunStore, name string, live bool, ranAt time.Time, res strategy.Result) error {
	last := res.Records[len(res.Records)-1]
	return runs.SaveRun(ctx, domain.RunSummary{
		Strategy:         name,
		RanAt:            ranAt,
		Live:             live,
		LastAction:       last.Action,
		LastSizing:       last.Sizing,
		TotalReturn:      res.TotalReturn,
		AnnualizedReturn: res.AnnualizedReturn,
	})
}

// formatFloat renders a figure at report precision; NaN renders empty the
// way a missing spreadsheet cell does.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf(numFormat, v)
}
