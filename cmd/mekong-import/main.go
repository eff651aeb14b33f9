package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"mekong/internal/config"
	"mekong/internal/domain"
	"mekong/internal/store"
	"mekong/internal/util"
)

func main() {
	barsPath := flag.String("bars", "", "CSV of daily bars to import (date,open,high,low,close,volume)")
	symbol := flag.String("symbol", "", "symbol the bars file belongs to")
	statesPath := flag.String("states", "", "CSV of regime states to import (date,lag,state)")
	flag.Parse()

	if *barsPath == "" && *statesPath == "" {
		log.Fatal("nothing to import: pass -bars and/or -states")
	}
	if *barsPath != "" && *symbol == "" {
		log.Fatal("-bars requires -symbol")
	}
	if *statesPath != "" && *symbol == "" {
		log.Fatal("-states requires -symbol")
	}

	cfgPath := "config/mekong.yaml"
	if p := os.Getenv("MEKONG_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx := context.Background()

	if *barsPath != "" {
		bars, err := readBarsCSV(*barsPath, *symbol)
		if err != nil {
			log.Fatalf("reading %s: %v", *barsPath, err)
		}
		ps := store.NewParquetStore(cfg.Storage.DataDir)
		if err := ps.WriteBars(ctx, bars); err != nil {
			log.Fatalf("importing bars: %v", err)
		}
		logger.Info("imported bars", "symbol", *symbol, "count", len(bars))
	}

	if *statesPath != "" {
		states, err := readStatesCSV(*statesPath, *symbol)
		if err != nil {
			log.Fatalf("reading %s: %v", *statesPath, err)
		}
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		defer db.Close()
		if err := db.SaveStates(ctx, states); err != nil {
			log.Fatalf("importing states: %v", err)
		}
		logger.Info("imported regime states", "symbol", *symbol, "count", len(states))
	}
}

// readBarsCSV parses a date,open,high,low,close,volume file. A header row is
// skipped when the first field does not parse as a date.
func readBarsCSV(path, symbol string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var bars []domain.Bar
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: bad date %q", line, rec[0])
		}

		var vals [4]float64
		for i := 0; i < 4; i++ {
			if vals[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
				return nil, fmt.Errorf("line %d: bad price %q", line, rec[i+1])
			}
		}
		volume, err := strconv.ParseInt(rec[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad volume %q", line, rec[5])
		}

		bars = append(bars, domain.Bar{
			Symbol: symbol,
			Date:   date,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: volume,
		})
	}
	return bars, nil
}

// readStatesCSV parses a date,lag,state file.
func readStatesCSV(path, symbol string) ([]domain.RegimeState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3

	var states []domain.RegimeState
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: bad date %q", line, rec[0])
		}
		lag, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad lag %q", line, rec[1])
		}
		state, err := strconv.Atoi(rec[2])
		if err != nil || (state != 0 && state != 1) {
			return nil, fmt.Errorf("line %d: bad state %q", line, rec[2])
		}

		states = append(states, domain.RegimeState{
			Symbol: symbol,
			Date:   date,
			Lag:    lag,
			State:  state,
		})
	}
	return states, nil
}
