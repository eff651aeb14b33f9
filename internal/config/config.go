package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the mekong engine. Every
// recognized option is an explicit field validated at load time.
type Config struct {
	Storage  Storage       `yaml:"storage"`
	Logging  Logging       `yaml:"logging"`
	Slack    Slack         `yaml:"slack"`
	Feed     Feed          `yaml:"feed"`
	Backtest Backtest      `yaml:"backtest"`
	Pairs    []PairConfig  `yaml:"pairs"`
	Ratios   []RatioConfig `yaml:"ratios"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	ResultsDir string `yaml:"results_dir"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Slack holds the incoming-webhook endpoint for run notifications.
type Slack struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Feed configures the live quote endpoint.
type Feed struct {
	QuoteURL        string `yaml:"quote_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Backtest holds run-level simulation parameters.
type Backtest struct {
	InitialCapital float64 `yaml:"initial_capital"`
	TaxRate        float64 `yaml:"tax_rate"`
	TransactionFee float64 `yaml:"transaction_fee"`
}

// PairConfig holds the tuned parameters for one traded pair. X is the
// predictor leg, Y the traded leg. Table optionally overrides the built-in
// decision table for the pair.
type PairConfig struct {
	X          string       `yaml:"x"`
	Y          string       `yaml:"y"`
	Anchor     string       `yaml:"anchor"` // "weekly" or "monthly"
	Degree     int          `yaml:"degree"`
	Multiplier float64      `yaml:"multiplier"`
	MaxDev     float64      `yaml:"max_dev"`
	MaxPortion float64      `yaml:"max_portion"`
	Table      *TableConfig `yaml:"table"`
}

// RatioConfig holds parameters for the single-asset fair-value strategy.
// Degree 0 disables prediction calibration.
type RatioConfig struct {
	Ticker     string  `yaml:"ticker"`
	Multiplier float64 `yaml:"multiplier"`
	Degree     int     `yaml:"degree"`
	MaxPortion float64 `yaml:"max_portion"`
	PredPath   string  `yaml:"pred_path"`
}

// TableConfig is the YAML form of a pair decision table. Each half lists its
// regime gate as "state_<lag>=<0|1>" disjuncts and its four action cells as
// [x>0, x<=0] pairs; recognized actions are "buy", "buy_sized", "sell" and
// "hold".
type TableConfig struct {
	Over  HalfConfig `yaml:"over"`
	Under HalfConfig `yaml:"under"`
}

// HalfConfig is one half (over- or under-valued) of a decision table.
type HalfConfig struct {
	Gate    []string  `yaml:"gate"`
	Signal  [2]string `yaml:"signal"`
	Default [2]string `yaml:"default"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config pre-populated with engine defaults; YAML values
// layered on top replace only what the file names.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/mekong.db",
			ResultsDir: "results",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Feed: Feed{
			TimeoutSeconds:  10,
			RateLimitPerMin: 30,
		},
		Backtest: Backtest{
			InitialCapital: 3_000_000,
			TaxRate:        0.001,
			TransactionFee: 0.001,
		},
	}
}

// Load reads the YAML configuration file at the given path over the
// defaults, applies environment variable overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEKONG_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MEKONG_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("MEKONG_SLACK_WEBHOOK"); v != "" {
		cfg.Slack.WebhookURL = v
	}
	if v := os.Getenv("MEKONG_QUOTE_URL"); v != "" {
		cfg.Feed.QuoteURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var validCells = map[string]bool{
	"buy": true, "buy_sized": true, "sell": true, "hold": true,
}

// Validate enforces range checks on every recognized option.
func (c *Config) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("config: initial_capital must be positive, got %g", c.Backtest.InitialCapital)
	}
	if c.Backtest.TaxRate < 0 || c.Backtest.TransactionFee < 0 {
		return fmt.Errorf("config: tax_rate and transaction_fee must be non-negative")
	}

	for i := range c.Pairs {
		if err := c.Pairs[i].validate(); err != nil {
			return fmt.Errorf("config: pair %d: %w", i, err)
		}
	}
	for i, r := range c.Ratios {
		if r.Ticker == "" {
			return fmt.Errorf("config: ratio %d: ticker is required", i)
		}
		if r.Degree < 0 || r.Degree > 2 {
			return fmt.Errorf("config: ratio %d: degree must be 0, 1 or 2, got %d", i, r.Degree)
		}
		if r.MaxPortion <= 0 || r.MaxPortion > 1 {
			return fmt.Errorf("config: ratio %d: max_portion must be in (0, 1], got %g", i, r.MaxPortion)
		}
	}
	return nil
}

func (p *PairConfig) validate() error {
	if p.X == "" || p.Y == "" {
		return fmt.Errorf("both legs of the pair are required")
	}
	switch p.Anchor {
	case "", "weekly", "monthly":
	default:
		return fmt.Errorf("anchor must be weekly or monthly, got %q", p.Anchor)
	}
	if p.Degree != 1 && p.Degree != 2 {
		return fmt.Errorf("degree must be 1 or 2, got %d", p.Degree)
	}
	if p.MaxDev <= 0 {
		return fmt.Errorf("max_dev must be positive, got %g", p.MaxDev)
	}
	if p.MaxPortion <= 0 || p.MaxPortion > 1 {
		return fmt.Errorf("max_portion must be in (0, 1], got %g", p.MaxPortion)
	}
	if p.Table != nil {
		if err := p.Table.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TableConfig) validate() error {
	for _, half := range []HalfConfig{t.Over, t.Under} {
		for _, cell := range []string{half.Signal[0], half.Signal[1], half.Default[0], half.Default[1]} {
			if !validCells[cell] {
				return fmt.Errorf("unknown table action %q", cell)
			}
		}
		for _, g := range half.Gate {
			if _, _, err := ParseGateCond(g); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseGateCond parses a "state_<lag>=<0|1>" gate disjunct into its lag and
// wanted state.
func ParseGateCond(s string) (lag, want int, err error) {
	rest, ok := strings.CutPrefix(s, "state_")
	if !ok {
		return 0, 0, fmt.Errorf("gate condition %q: want state_<lag>=<0|1>", s)
	}
	lagStr, wantStr, ok := strings.Cut(rest, "=")
	if !ok {
		return 0, 0, fmt.Errorf("gate condition %q: want state_<lag>=<0|1>", s)
	}
	if lag, err = strconv.Atoi(lagStr); err != nil {
		return 0, 0, fmt.Errorf("gate condition %q: bad lag: %w", s, err)
	}
	if want, err = strconv.Atoi(wantStr); err != nil || (want != 0 && want != 1) {
		return 0, 0, fmt.Errorf("gate condition %q: state must be 0 or 1", s)
	}
	return lag, want, nil
}
