package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/portfolio"
)

const fillColumns = `fill_id, tag, symbol, side, date, price, quantity, gross, commission, stamp_tax, reason, strategy_id, layer, pnl`

func scanFill(row interface{ Scan(...any) error }) (FillRecord, error) {
	var (
		rec                                  FillRecord
		sym, side, price, gross, comm, stamp string
		pnl                                  string
	)
	err := row.Scan(
		&rec.FillID, &rec.Tag, &sym, &side, &rec.Date,
		&price, &rec.Quantity, &gross, &comm, &stamp,
		&rec.Reason, &rec.StrategyID, &rec.Layer, &pnl,
	)
	if err != nil {
		return FillRecord{}, err
	}
	rec.Symbol = market.Symbol(sym)
	rec.Side = portfolio.Side(side)
	if rec.Price, err = decimal.NewFromString(price); err != nil {
		return FillRecord{}, fmt.Errorf("fill %s price: %w", rec.FillID, err)
	}
	if rec.Gross, err = decimal.NewFromString(gross); err != nil {
		return FillRecord{}, fmt.Errorf("fill %s gross: %w", rec.FillID, err)
	}
	if rec.Commission, err = decimal.NewFromString(comm); err != nil {
		return FillRecord{}, fmt.Errorf("fill %s commission: %w", rec.FillID, err)
	}
	if rec.StampTax, err = decimal.NewFromString(stamp); err != nil {
		return FillRecord{}, fmt.Errorf("fill %s stamp tax: %w", rec.FillID, err)
	}
	if rec.PnL, err = decimal.NewFromString(pnl); err != nil {
		return FillRecord{}, fmt.Errorf("fill %s pnl: %w", rec.FillID, err)
	}
	return rec, nil
}

// GetFillByTag returns the fill stored under an order tag.
func (j *SQLite) GetFillByTag(ctx context.Context, tag string) (FillRecord, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+fillColumns+` FROM fills WHERE tag = ?`, tag)
	rec, err := scanFill(row)
	if err == sql.ErrNoRows {
		return FillRecord{}, fmt.Errorf("fill with tag %q not found", tag)
	}
	return rec, err
}

// ListFillsBetween returns fills dated within [start, end), oldest first,
// tag-ascending within a date.
func (j *SQLite) ListFillsBetween(ctx context.Context, start, end time.Time) ([]FillRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+fillColumns+`
		FROM fills
		WHERE date >= ? AND date < ?
		ORDER BY date ASC, tag ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		rec, err := scanFill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EquityCurve returns all equity points in date order.
func (j *SQLite) EquityCurve(ctx context.Context) ([]EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT date, equity, cash FROM equity ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityPoint
	for rows.Next() {
		var (
			p            EquityPoint
			equity, cash string
		)
		if err := rows.Scan(&p.Date, &equity, &cash); err != nil {
			return nil, err
		}
		if p.Equity, err = decimal.NewFromString(equity); err != nil {
			return nil, fmt.Errorf("equity %s: %w", p.Date, err)
		}
		if p.Cash, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("cash %s: %w", p.Date, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Summary aggregates realized results over all sells.
type Summary struct {
	Trades   int
	Wins     int
	Losses   int
	TotalPnL decimal.Decimal
}

// Summarize tallies closed trades: every sell fill is one round trip.
func (j *SQLite) Summarize(ctx context.Context) (Summary, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT pnl FROM fills WHERE side = ? ORDER BY date ASC`, string(portfolio.Sell))
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	s := Summary{TotalPnL: decimal.Zero}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return Summary{}, err
		}
		pnl, err := decimal.NewFromString(raw)
		if err != nil {
			return Summary{}, err
		}
		s.Trades++
		if pnl.IsPositive() {
			s.Wins++
		} else {
			s.Losses++
		}
		s.TotalPnL = s.TotalPnL.Add(pnl)
	}
	return s, rows.Err()
}
