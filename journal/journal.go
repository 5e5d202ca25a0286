// Package journal persists executed fills and the daily equity curve.
// Every fill carries an order tag (date, symbol, reason); the journal
// treats the tag as an idempotency key so a replayed order is stored once.
package journal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/portfolio"
)

// FillRecord is one stored execution.
type FillRecord struct {
	FillID     string
	Tag        string
	Symbol     market.Symbol
	Side       portfolio.Side
	Date       time.Time
	Price      decimal.Decimal
	Quantity   int64
	Gross      decimal.Decimal
	Commission decimal.Decimal
	StampTax   decimal.Decimal
	Reason     string
	StrategyID string
	Layer      int
	PnL        decimal.Decimal
}

// EquityPoint is one day on the equity curve.
type EquityPoint struct {
	Date   time.Time
	Equity decimal.Decimal
	Cash   decimal.Decimal
}

type Journal interface {
	RecordFill(ctx context.Context, fill portfolio.Fill, tag string) error
	RecordEquity(ctx context.Context, date time.Time, equity, cash decimal.Decimal) error
	HasTag(ctx context.Context, tag string) (bool, error)
	Close() error
}
