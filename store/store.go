// Package store is the sqlite data layer: daily bars, fundamental
// snapshots, regime history and the persisted portfolio. Backtests and
// live sessions read the same tables, which keeps replay honest.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	date DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	amount REAL NOT NULL,
	PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_bars_date ON bars(date);

CREATE TABLE IF NOT EXISTS fundamentals (
	symbol TEXT NOT NULL,
	as_of DATETIME NOT NULL,
	pe REAL NOT NULL,
	roe REAL NOT NULL,
	dividend_yield REAL NOT NULL,
	liability_ratio REAL NOT NULL,
	market_cap TEXT NOT NULL,
	PRIMARY KEY (symbol, as_of)
);

CREATE TABLE IF NOT EXISTS regime_history (
	date DATETIME PRIMARY KEY,
	regime TEXT NOT NULL,
	score REAL NOT NULL,
	confidence REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS account (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	cash TEXT NOT NULL,
	saved_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	symbol TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	entry_date DATETIME NOT NULL,
	entry_price TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	weight TEXT NOT NULL,
	last_price TEXT NOT NULL,
	layers INTEGER NOT NULL
);
`

// SQLite wraps the database handle.
type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
