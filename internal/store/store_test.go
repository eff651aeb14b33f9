package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mekong/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	got := ps.barPath("hdb", 2024)
	want := filepath.Join("/data", "daily", "HDB", "2024.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol: "HDB",
			Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:   19.5, High: 19.9, Low: 19.3, Close: 19.8,
			Volume: 5_000_000,
		},
		{
			Symbol: "HDB",
			Date:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:   19.8, High: 20.2, Low: 19.6, Close: 20.1,
			Volume: 4_500_000,
		},
	}

	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "HDB", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 19.8 {
		t.Errorf("first bar Close = %v, want 19.8", got[0].Close)
	}
	if got[1].Close != 20.1 {
		t.Errorf("second bar Close = %v, want 20.1", got[1].Close)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	first := []domain.Bar{
		{Symbol: "CTG", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 33, High: 34, Low: 32.8, Close: 33.9, Volume: 3_000_000},
	}
	if err := ps.WriteBars(ctx, first); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Same symbol and year: the second write merges with the first and a
	// duplicate date replaces the earlier record.
	second := []domain.Bar{
		{Symbol: "CTG", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 33, High: 34, Low: 32.8, Close: 34.1, Volume: 3_100_000},
		{Symbol: "CTG", Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Open: 34, High: 34.5, Low: 33.7, Close: 34.2, Volume: 2_800_000},
	}
	if err := ps.WriteBars(ctx, second); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "CTG", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if got[0].Close != 34.1 {
		t.Errorf("duplicate date not replaced: Close = %v, want 34.1", got[0].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "MBB", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 24, High: 24.5, Low: 23.8, Close: 24.3, Volume: 6_000_000},
		{Symbol: "VND", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 17, High: 17.4, Low: 16.9, Close: 17.2, Volume: 8_000_000},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "MBB" || symbols[1] != "VND" {
		t.Errorf("ListSymbols = %v, want [MBB VND]", symbols)
	}
}

func TestSQLiteStoreRegimeStates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	states := []domain.RegimeState{
		{Symbol: "HDB", Date: day, Lag: 3, State: 1},
		{Symbol: "HDB", Date: day, Lag: 200, State: 0},
		{Symbol: "HDB", Date: day.AddDate(0, 0, 1), Lag: 3, State: 0},
		{Symbol: "VND", Date: day, Lag: 3, State: 1},
	}
	if err := s.SaveStates(ctx, states); err != nil {
		t.Fatalf("SaveStates: %v", err)
	}

	// Upsert replaces an existing (symbol, date, lag).
	if err := s.SaveStates(ctx, []domain.RegimeState{
		{Symbol: "HDB", Date: day, Lag: 3, State: 0},
	}); err != nil {
		t.Fatalf("SaveStates (upsert): %v", err)
	}

	got, err := s.StatesFor(ctx, "HDB")
	if err != nil {
		t.Fatalf("StatesFor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("StatesFor returned %d dates, want 2", len(got))
	}
	if got["2024-05-06"][3] != 0 {
		t.Errorf("upserted lag 3 state = %d, want 0", got["2024-05-06"][3])
	}
	if got["2024-05-06"][200] != 0 {
		t.Errorf("lag 200 state = %d, want 0", got["2024-05-06"][200])
	}
	if _, ok := got["2024-05-06"][20]; ok {
		t.Error("lag 20 should be absent")
	}
}

func TestSQLiteStoreRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := domain.RunSummary{
			Strategy:         "MBB_VND",
			RanAt:            base.Add(time.Duration(i) * time.Hour),
			Live:             i == 2,
			LastAction:       domain.ActionBuy,
			LastSizing:       0.1,
			TotalReturn:      0.37,
			AnnualizedReturn: 0.21,
		}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	if err := s.SaveRun(ctx, domain.RunSummary{Strategy: "CTG_HDB", RanAt: base, LastAction: domain.ActionHold}); err != nil {
		t.Fatalf("SaveRun (other strategy): %v", err)
	}

	runs, err := s.ListRuns(ctx, "MBB_VND", 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(runs))
	}
	if !runs[0].RanAt.After(runs[1].RanAt) {
		t.Error("ListRuns not newest first")
	}
	if !runs[0].Live {
		t.Error("newest run should be live")
	}
	if runs[0].LastAction != domain.ActionBuy {
		t.Errorf("LastAction = %s, want BUY", runs[0].LastAction)
	}
}

func TestLoadPairRows(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	db, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	// Enough joined weekdays to clear the listing warmup plus a handful of
	// tradable rows, with one date present only in the predictor leg.
	var barsX, barsY []domain.Bar
	day := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	total := listingWarmup + 5
	skipped := day.AddDate(0, 0, 14)
	for len(barsY) < total {
		px := 30 + float64(len(barsX)%10)*0.1
		barsX = append(barsX, domain.Bar{Symbol: "CTG", Date: day, Open: px, Close: px + 0.2, Volume: 1000})
		if !day.Equal(skipped) {
			py := 19 + float64(len(barsY)%10)*0.1
			barsY = append(barsY, domain.Bar{Symbol: "HDB", Date: day, Open: py, Close: py + 0.1, Volume: 1000})
		}
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Saturday {
			day = day.AddDate(0, 0, 2)
		}
	}
	if err := ps.WriteBars(ctx, barsX); err != nil {
		t.Fatalf("WriteBars x: %v", err)
	}
	if err := ps.WriteBars(ctx, barsY); err != nil {
		t.Fatalf("WriteBars y: %v", err)
	}

	lastDay := barsY[len(barsY)-1].Date
	if err := db.SaveStates(ctx, []domain.RegimeState{
		{Symbol: "HDB", Date: lastDay, Lag: 3, State: 1},
	}); err != nil {
		t.Fatalf("SaveStates: %v", err)
	}

	rows, err := LoadPairRows(ctx, ps, db, "CTG", "HDB")
	if err != nil {
		t.Fatalf("LoadPairRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("LoadPairRows returned %d rows, want 5 past the warmup", len(rows))
	}
	last := rows[len(rows)-1]
	if !last.Date.Equal(lastDay) {
		t.Errorf("last row date = %s, want %s", last.Date, lastDay)
	}
	if last.Close != last.CloseY {
		t.Errorf("row close %v should mirror traded leg close %v", last.Close, last.CloseY)
	}
	if s, ok := last.State(3); !ok || s != 1 {
		t.Errorf("traded leg state not attached: %v %v", s, ok)
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].Date.After(rows[i-1].Date) {
			t.Fatalf("rows not strictly ascending at %d", i)
		}
	}
}

func TestLoadPairRowsInsufficientData(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{Symbol: "CTG", Date: day, Open: 30, Close: 30.5},
		{Symbol: "HDB", Date: day, Open: 19, Close: 19.2},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	_, err := LoadPairRows(ctx, ps, nil, "CTG", "HDB")
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestLoadTickerRows(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	var bars []domain.Bar
	day := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for len(bars) < listingWarmup+2 {
		bars = append(bars, domain.Bar{Symbol: "OPC", Date: day, Open: 40, Close: 40.5})
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Saturday {
			day = day.AddDate(0, 0, 2)
		}
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	lastDay := bars[len(bars)-1].Date.Format("2006-01-02")
	rows, err := LoadTickerRows(ctx, ps, "OPC", map[string]float64{lastDay: 48}, nil)
	if err != nil {
		t.Fatalf("LoadTickerRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("LoadTickerRows returned %d rows, want 2", len(rows))
	}
	if rows[1].Pred != 48 {
		t.Errorf("prediction not attached: %v", rows[1].Pred)
	}
}

func TestLoadPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preds.csv")
	data := "date,pred,target\n" +
		"2024-03-04,48.2,47.9\n" +
		"2024-03-05,48.5,\n" +
		"2024-03-06,49.1\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	preds, targets, err := LoadPredictions(path)
	if err != nil {
		t.Fatalf("LoadPredictions: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("got %d predictions, want 3", len(preds))
	}
	if preds["2024-03-05"] != 48.5 {
		t.Errorf("pred for 2024-03-05 = %v, want 48.5", preds["2024-03-05"])
	}
	if len(targets) != 1 || targets["2024-03-04"] != 47.9 {
		t.Errorf("targets = %v, want only 2024-03-04 -> 47.9", targets)
	}
}

func TestLoadPredictionsBadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preds.csv")
	if err := os.WriteFile(path, []byte("2024-03-04,not-a-number\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := LoadPredictions(path); err == nil {
		t.Fatal("expected an error for a malformed prediction")
	}
}
