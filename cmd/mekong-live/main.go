package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"mekong/internal/config"
	"mekong/internal/engine"
	"mekong/internal/feed"
	"mekong/internal/notify"
	"mekong/internal/store"
	"mekong/internal/util"
)

func main() {
	pair := flag.String("pair", "", "pair to evaluate as X_Y (empty evaluates every registered pair)")
	schedule := flag.String("schedule", "", "cron expression for repeated evaluation (empty runs once)")
	flag.Parse()

	cfgPath := "config/mekong.yaml"
	if p := os.Getenv("MEKONG_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Feed.QuoteURL == "" {
		log.Fatal("live evaluation requires feed.quote_url")
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer db.Close()

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	quoter := feed.NewHTTPQuoter(
		cfg.Feed.QuoteURL,
		time.Duration(cfg.Feed.TimeoutSeconds)*time.Second,
		cfg.Feed.RateLimitPerMin,
		logger,
	)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Slack.WebhookURL != "" {
		notifier = notify.NewSlackNotifier(cfg.Slack.WebhookURL, logger)
	}

	e := engine.New(cfg, bars, db, db, quoter, notifier, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *schedule == "" {
		evaluate(ctx, e, *pair, logger)
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() { evaluate(ctx, e, *pair, logger) }); err != nil {
		log.Fatalf("invalid schedule %q: %v", *schedule, err)
	}
	c.Start()
	logger.Info("live evaluation scheduled", "schedule", *schedule)

	<-ctx.Done()
	<-c.Stop().Done()
}

// evaluate runs one live pass for the named pair, or every pair when name is
// empty. Failures are logged, not fatal; the next tick retries.
func evaluate(ctx context.Context, e *engine.Engine, name string, logger *slog.Logger) {
	names := []string{name}
	if name == "" {
		names = e.Registry().List()
	}
	for _, n := range names {
		if _, err := e.RunLive(ctx, n); err != nil {
			logger.Error("live evaluation failed", "pair", n, "err", err)
		}
	}
}
