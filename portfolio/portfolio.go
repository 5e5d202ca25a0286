// Package portfolio tracks cash and open positions with exact decimal
// arithmetic, A-share trading costs and round-lot sizing.
package portfolio

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
)

const (
	// MaxPositions caps concurrent holdings.
	MaxPositions = 10
	// LotSize is the A-share board lot; orders round down to a multiple.
	LotSize = 100
)

var (
	commissionRate = decimal.NewFromFloat(0.0003)
	minCommission  = decimal.NewFromInt(5)
	stampTaxRate   = decimal.NewFromFloat(0.001) // sell side only

	ErrMaxPositions     = errors.New("portfolio: position limit reached")
	ErrPositionExists   = errors.New("portfolio: position already open")
	ErrNoPosition       = errors.New("portfolio: no such position")
	ErrInsufficientCash = errors.New("portfolio: insufficient cash")
	ErrWeightExceeded   = errors.New("portfolio: weight sum would exceed 1.0")
	ErrMaxLayers        = errors.New("portfolio: add-on layer limit reached")
	ErrZeroQuantity     = errors.New("portfolio: sized to zero lots")
)

// CloseReason records why a position was exited. The values double as the
// reason component of idempotent order tags, so they never change.
type CloseReason string

const (
	TakeProfit     CloseReason = "take_profit"
	StopLoss       CloseReason = "stop_loss"
	RegimeExit     CloseReason = "regime_exit"
	StrategySignal CloseReason = "strategy_signal"
)

// Position is one open holding. Quantity only grows through add-on layers;
// exits are all-or-nothing.
type Position struct {
	Symbol     market.Symbol
	StrategyID string
	EntryDate  time.Time
	EntryPrice decimal.Decimal // volume-weighted across layers
	Quantity   int64
	Weight     decimal.Decimal // fraction of equity at entry
	LastPrice  decimal.Decimal
	Layers     int // add-ons applied, 0 on a fresh open
}

// MarketValue is quantity times the last marked price.
func (p *Position) MarketValue() decimal.Decimal {
	return p.LastPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// Return is the fractional gain over the volume-weighted entry price.
func (p *Position) Return() decimal.Decimal {
	if p.EntryPrice.IsZero() {
		return decimal.Zero
	}
	return p.LastPrice.Sub(p.EntryPrice).Div(p.EntryPrice)
}

// Sellable reports whether T+1 settlement allows selling on today:
// shares bought on a date cannot be sold until a strictly later date.
func (p *Position) Sellable(today time.Time) bool {
	return market.Day(today).After(market.Day(p.EntryDate))
}

// RoundLot rounds a share count down to a whole number of board lots.
func RoundLot(qty int64) int64 {
	if qty < 0 {
		return 0
	}
	return qty - qty%LotSize
}

// Commission is the broker fee for a trade of the given gross amount:
// 3 basis points with a 5 yuan floor.
func Commission(amount decimal.Decimal) decimal.Decimal {
	c := amount.Mul(commissionRate)
	if c.LessThan(minCommission) {
		return minCommission
	}
	return c
}

// StampTax is the 0.1% seller-side duty.
func StampTax(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(stampTaxRate)
}
