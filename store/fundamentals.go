package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/fundamentals"
	"github.com/rustyeddy/equitrader/market"
)

// SaveFundamentals upserts one snapshot keyed by symbol and as-of date.
func (s *SQLite) SaveFundamentals(ctx context.Context, snap fundamentals.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fundamentals (symbol, as_of, pe, roe, dividend_yield, liability_ratio, market_cap)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, as_of) DO UPDATE SET
			pe = excluded.pe, roe = excluded.roe,
			dividend_yield = excluded.dividend_yield,
			liability_ratio = excluded.liability_ratio,
			market_cap = excluded.market_cap`,
		string(snap.Symbol), market.Day(snap.AsOf), snap.PE, snap.ROE,
		snap.DividendYield, snap.LiabilityRatio, snap.MarketCap.String())
	if err != nil {
		return fmt.Errorf("save fundamentals %s: %w", snap.Symbol, err)
	}
	return nil
}

// FundamentalsAsOf returns the latest snapshot effective on the date, or
// nil when the symbol has never reported. Point-in-time: snapshots dated
// after the query date are invisible.
func (s *SQLite) FundamentalsAsOf(ctx context.Context, sym market.Symbol, date time.Time) (*fundamentals.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, as_of, pe, roe, dividend_yield, liability_ratio, market_cap
		FROM fundamentals
		WHERE symbol = ? AND as_of <= ?
		ORDER BY as_of DESC
		LIMIT 1`, string(sym), market.Day(date))

	var (
		snap      fundamentals.Snapshot
		symRaw    string
		marketCap string
	)
	err := row.Scan(&symRaw, &snap.AsOf, &snap.PE, &snap.ROE,
		&snap.DividendYield, &snap.LiabilityRatio, &marketCap)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fundamentals %s: %w", sym, err)
	}
	snap.Symbol = market.Symbol(symRaw)
	snap.AsOf = market.Day(snap.AsOf)
	if snap.MarketCap, err = decimal.NewFromString(marketCap); err != nil {
		return nil, fmt.Errorf("fundamentals %s market cap: %w", sym, err)
	}
	return &snap, nil
}
