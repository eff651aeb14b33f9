package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mekong/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ RegimeStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS regime_states (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	lag    INTEGER NOT NULL,
	state  INTEGER NOT NULL,
	PRIMARY KEY (symbol, date, lag)
);

CREATE TABLE IF NOT EXISTS runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy          TEXT NOT NULL,
	ran_at            TEXT NOT NULL,
	live              INTEGER NOT NULL,
	last_action       TEXT NOT NULL,
	last_sizing       REAL NOT NULL,
	total_return      REAL NOT NULL,
	annualized_return REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs (strategy, ran_at);
`

// SQLiteStore implements RegimeStore and RunStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// RegimeStore implementation
// ---------------------------------------------------------------------------

// SaveStates upserts a batch of classifier states in one transaction.
func (s *SQLiteStore) SaveStates(ctx context.Context, states []domain.RegimeState) error {
	if len(states) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO regime_states (symbol, date, lag, state) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range states {
		if _, err := stmt.ExecContext(ctx, st.Symbol, st.Date.Format("2006-01-02"), st.Lag, st.State); err != nil {
			return fmt.Errorf("saving state %s/%s/%d: %w", st.Symbol, st.Date.Format("2006-01-02"), st.Lag, err)
		}
	}
	return tx.Commit()
}

// StatesFor returns all states for a symbol keyed by date then lag window.
func (s *SQLiteStore) StatesFor(ctx context.Context, symbol string) (map[string]map[int]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, lag, state FROM regime_states WHERE symbol = ?`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]map[int]int)
	for rows.Next() {
		var date string
		var lag, state int
		if err := rows.Scan(&date, &lag, &state); err != nil {
			return nil, err
		}
		if states[date] == nil {
			states[date] = make(map[int]int)
		}
		states[date][lag] = state
	}
	return states, rows.Err()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun appends a run summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, run domain.RunSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (strategy, ran_at, live, last_action, last_sizing, total_return, annualized_return)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Strategy, run.RanAt.UTC().Format(time.RFC3339), boolToInt(run.Live),
		string(run.LastAction), run.LastSizing, run.TotalReturn, run.AnnualizedReturn)
	if err != nil {
		return fmt.Errorf("saving run for %s: %w", run.Strategy, err)
	}
	return nil
}

// ListRuns returns the most recent runs for a strategy, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, strategy string, limit int) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy, ran_at, live, last_action, last_sizing, total_return, annualized_return
		 FROM runs WHERE strategy = ? ORDER BY ran_at DESC, id DESC LIMIT ?`, strategy, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var run domain.RunSummary
		var ranAt, action string
		var live int
		if err := rows.Scan(&run.Strategy, &ranAt, &live, &action, &run.LastSizing,
			&run.TotalReturn, &run.AnnualizedReturn); err != nil {
			return nil, err
		}
		run.RanAt, err = time.Parse(time.RFC3339, ranAt)
		if err != nil {
			return nil, fmt.Errorf("parsing ran_at %q: %w", ranAt, err)
		}
		run.Live = live != 0
		run.LastAction = domain.Action(action)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
