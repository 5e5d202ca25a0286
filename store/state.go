package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/regime"
)

// RegimePoint is one day of classifier output.
type RegimePoint struct {
	Date       time.Time
	Regime     regime.Regime
	Score      float64
	Confidence float64
}

// SaveRegime upserts the classification for a date.
func (s *SQLite) SaveRegime(ctx context.Context, date time.Time, cls regime.Classification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO regime_history (date, regime, score, confidence)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			regime = excluded.regime, score = excluded.score,
			confidence = excluded.confidence`,
		market.Day(date), cls.Regime.String(), cls.Score, cls.Confidence)
	if err != nil {
		return fmt.Errorf("save regime %s: %w", date.Format("2006-01-02"), err)
	}
	return nil
}

// RegimeHistory returns all classified days, oldest first.
func (s *SQLite) RegimeHistory(ctx context.Context) ([]RegimePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, regime, score, confidence
		FROM regime_history ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("regime history: %w", err)
	}
	defer rows.Close()

	var out []RegimePoint
	for rows.Next() {
		var (
			p   RegimePoint
			raw string
		)
		if err := rows.Scan(&p.Date, &raw, &p.Score, &p.Confidence); err != nil {
			return nil, fmt.Errorf("regime history: %w", err)
		}
		p.Date = market.Day(p.Date)
		p.Regime = regime.ParseRegime(raw)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePortfolio replaces the persisted portfolio with the snapshot, in one
// transaction.
func (s *SQLite) SavePortfolio(ctx context.Context, snap portfolio.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO account (id, cash, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET cash = excluded.cash, saved_at = excluded.saved_at`,
		snap.Cash.String(), time.Now().UTC()); err != nil {
		tx.Rollback()
		return fmt.Errorf("save portfolio cash: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		tx.Rollback()
		return fmt.Errorf("save portfolio positions: %w", err)
	}
	for _, p := range snap.Positions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO positions
			(symbol, strategy_id, entry_date, entry_price, quantity, weight, last_price, layers)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(p.Symbol), p.StrategyID, market.Day(p.EntryDate),
			p.EntryPrice.String(), p.Quantity, p.Weight.String(),
			p.LastPrice.String(), p.Layers); err != nil {
			tx.Rollback()
			return fmt.Errorf("save position %s: %w", p.Symbol, err)
		}
	}
	return tx.Commit()
}

// LoadPortfolio reads the persisted portfolio. ok=false when nothing has
// been saved yet.
func (s *SQLite) LoadPortfolio(ctx context.Context) (portfolio.Snapshot, bool, error) {
	var cashRaw string
	err := s.db.QueryRowContext(ctx, `SELECT cash FROM account WHERE id = 1`).Scan(&cashRaw)
	if err == sql.ErrNoRows {
		return portfolio.Snapshot{}, false, nil
	}
	if err != nil {
		return portfolio.Snapshot{}, false, fmt.Errorf("load portfolio: %w", err)
	}
	cash, err := decimal.NewFromString(cashRaw)
	if err != nil {
		return portfolio.Snapshot{}, false, fmt.Errorf("load portfolio cash: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, strategy_id, entry_date, entry_price, quantity, weight, last_price, layers
		FROM positions ORDER BY symbol ASC`)
	if err != nil {
		return portfolio.Snapshot{}, false, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	snap := portfolio.Snapshot{Cash: cash}
	for rows.Next() {
		var (
			p                       portfolio.Position
			sym, entry, weight, lp  string
		)
		if err := rows.Scan(&sym, &p.StrategyID, &p.EntryDate, &entry,
			&p.Quantity, &weight, &lp, &p.Layers); err != nil {
			return portfolio.Snapshot{}, false, fmt.Errorf("load positions: %w", err)
		}
		p.Symbol = market.Symbol(sym)
		p.EntryDate = market.Day(p.EntryDate)
		if p.EntryPrice, err = decimal.NewFromString(entry); err != nil {
			return portfolio.Snapshot{}, false, fmt.Errorf("load position %s: %w", sym, err)
		}
		if p.Weight, err = decimal.NewFromString(weight); err != nil {
			return portfolio.Snapshot{}, false, fmt.Errorf("load position %s: %w", sym, err)
		}
		if p.LastPrice, err = decimal.NewFromString(lp); err != nil {
			return portfolio.Snapshot{}, false, fmt.Errorf("load position %s: %w", sym, err)
		}
		snap.Positions = append(snap.Positions, p)
	}
	if err := rows.Err(); err != nil {
		return portfolio.Snapshot{}, false, err
	}
	return snap, true, nil
}
