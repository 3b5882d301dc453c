// Package db persists backtest runs, their trade logs and ledgers, and live
// paper fills to SQLite. The simulation core itself owns no state; this is
// host-level persistence of results.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound marks a missing record.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQL handle.
type Store struct {
	DB *sql.DB
}

// Open opens (and creates if needed) the SQLite database at path and
// applies the schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1) // SQLite prefers a single writer.
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{DB: conn}
	if err := s.applySchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Store) applySchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id            TEXT PRIMARY KEY,
			symbols       TEXT NOT NULL,
			strategy_type TEXT NOT NULL,
			parameters    TEXT NOT NULL,
			initial_cash  REAL NOT NULL,
			final_value   REAL NOT NULL,
			sharpe_ratio  REAL NOT NULL,
			max_drawdown  REAL NOT NULL,
			win_rate      REAL NOT NULL,
			total_trades  INTEGER NOT NULL,
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id      TEXT PRIMARY KEY,
			run_id  TEXT NOT NULL REFERENCES backtest_runs(id),
			ts      TIMESTAMP NOT NULL,
			symbol  TEXT NOT NULL,
			action  TEXT NOT NULL,
			shares  REAL NOT NULL,
			price   REAL NOT NULL,
			value   REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades(run_id)`,
		`CREATE TABLE IF NOT EXISTS backtest_ledger (
			run_id   TEXT NOT NULL REFERENCES backtest_runs(id),
			ts       TIMESTAMP NOT NULL,
			cash     REAL NOT NULL,
			holdings REAL NOT NULL,
			total    REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_ledger_run ON backtest_ledger(run_id)`,
		`CREATE TABLE IF NOT EXISTS fills (
			order_id   TEXT PRIMARY KEY,
			symbol     TEXT NOT NULL,
			side       TEXT NOT NULL,
			qty        REAL NOT NULL,
			price      REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
