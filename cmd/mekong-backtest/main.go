package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mekong/internal/config"
	"mekong/internal/engine"
	"mekong/internal/notify"
	"mekong/internal/report"
	"mekong/internal/store"
	"mekong/internal/util"
)

func main() {
	pair := flag.String("pair", "", "pair to backtest as X_Y (empty runs every registered pair)")
	ticker := flag.String("ticker", "", "single ticker to backtest with the fair-value ratio strategy")
	flag.Parse()

	if *pair != "" && *ticker != "" {
		log.Fatal("-pair and -ticker are mutually exclusive")
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

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer db.Close()

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	e := engine.New(cfg, bars, db, db, nil, notify.Noop{}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *ticker != "" {
		res, err := e.RunRatioBacktest(ctx, *ticker)
		if err != nil {
			log.Fatalf("backtest failed: %v", err)
		}
		for _, line := range report.Summary(*ticker, res) {
			fmt.Println(line)
		}
		return
	}

	if *pair == "" {
		if err := e.RunAllBacktests(ctx); err != nil {
			log.Fatalf("backtests failed: %v", err)
		}
		return
	}

	res, err := e.RunBacktest(ctx, *pair)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
	for _, line := range report.Summary(*pair, res) {
		fmt.Println(line)
	}
}
