package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/equitrader/market"
)

// SaveBars upserts daily bars; reloading a feed is safe.
func (s *SQLite) SaveBars(ctx context.Context, bars []market.DailyBar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save bars: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (symbol, date, open, high, low, close, volume, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume, amount = excluded.amount`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("save bars: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, string(b.Symbol), market.Day(b.Date),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount); err != nil {
			tx.Rollback()
			return fmt.Errorf("save bar %s %s: %w", b.Symbol, b.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// History returns a symbol's bars strictly before the cutoff, oldest first.
func (s *SQLite) History(ctx context.Context, sym market.Symbol, before time.Time) (market.History, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume, amount
		FROM bars
		WHERE symbol = ? AND date < ?
		ORDER BY date ASC`, string(sym), market.Day(before))
	if err != nil {
		return market.History{}, fmt.Errorf("history %s: %w", sym, err)
	}
	defer rows.Close()

	var bars []market.DailyBar
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return market.History{}, fmt.Errorf("history %s: %w", sym, err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return market.History{}, fmt.Errorf("history %s: %w", sym, err)
	}
	return market.NewHistory(sym, bars)
}

// BarOn returns a symbol's bar for the exact date; ok=false when the
// symbol did not trade that day.
func (s *SQLite) BarOn(ctx context.Context, sym market.Symbol, date time.Time) (market.DailyBar, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume, amount
		FROM bars
		WHERE symbol = ? AND date = ?`, string(sym), market.Day(date))
	b, err := scanBar(row)
	if err == sql.ErrNoRows {
		return market.DailyBar{}, false, nil
	}
	if err != nil {
		return market.DailyBar{}, false, fmt.Errorf("bar %s %s: %w", sym, date.Format("2006-01-02"), err)
	}
	return b, true, nil
}

// ActiveUniverse lists the symbols that traded on the date, ascending.
func (s *SQLite) ActiveUniverse(ctx context.Context, date time.Time) ([]market.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT symbol FROM bars WHERE date = ? ORDER BY symbol ASC`,
		market.Day(date))
	if err != nil {
		return nil, fmt.Errorf("active universe: %w", err)
	}
	defer rows.Close()

	var out []market.Symbol
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("active universe: %w", err)
		}
		out = append(out, market.Symbol(sym))
	}
	return out, rows.Err()
}

// TradingDates lists distinct bar dates within [start, end], ascending.
func (s *SQLite) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date FROM bars
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`, market.Day(start), market.Day(end))
	if err != nil {
		return nil, fmt.Errorf("trading dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("trading dates: %w", err)
		}
		out = append(out, market.Day(d))
	}
	return out, rows.Err()
}

func scanBar(row interface{ Scan(...any) error }) (market.DailyBar, error) {
	var (
		b   market.DailyBar
		sym string
	)
	err := row.Scan(&sym, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Amount)
	if err != nil {
		return market.DailyBar{}, err
	}
	b.Symbol = market.Symbol(sym)
	b.Date = market.Day(b.Date)
	return b, nil
}
