package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/internal/id"
	"github.com/rustyeddy/equitrader/portfolio"
)

// SQLite stores the journal in a local sqlite database. Use ":memory:"
// for throwaway runs.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordFill stores one execution. A fill whose tag is already present is
// silently dropped, so re-submitting an order after a crash cannot double
// count it.
func (j *SQLite) RecordFill(ctx context.Context, f portfolio.Fill, tag string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO fills
		(fill_id, tag, symbol, side, date, price, quantity, gross, commission, stamp_tax, reason, strategy_id, layer, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.New(), tag, string(f.Symbol), string(f.Side), f.Date,
		f.Price.String(), f.Quantity, f.Gross.String(),
		f.Commission.String(), f.StampTax.String(),
		string(f.Reason), f.StrategyID, f.Layer, f.PnL.String(),
	)
	if err != nil {
		return fmt.Errorf("record fill %s: %w", tag, err)
	}
	return nil
}

// RecordEquity upserts the equity point for the date; re-running a day
// overwrites rather than duplicates.
func (j *SQLite) RecordEquity(ctx context.Context, date time.Time, equity, cash decimal.Decimal) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO equity (date, equity, cash) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET equity = excluded.equity, cash = excluded.cash`,
		date, equity.String(), cash.String(),
	)
	if err != nil {
		return fmt.Errorf("record equity %s: %w", date.Format("2006-01-02"), err)
	}
	return nil
}

// HasTag reports whether an order tag was already executed.
func (j *SQLite) HasTag(ctx context.Context, tag string) (bool, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM fills WHERE tag = ?`, tag).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup tag %s: %w", tag, err)
	}
	return n > 0, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
