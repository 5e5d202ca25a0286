// Package fundamentals screens the symbol universe on liquidity and
// fundamental quality before any technical signal is computed.
package fundamentals

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
)

// Snapshot is one point-in-time fundamental record for a symbol. Snapshots
// are supplied by the data collaborator and read-only here.
type Snapshot struct {
	Symbol         market.Symbol
	AsOf           time.Time
	PE             float64
	ROE            float64 // percent
	DividendYield  float64 // percent
	LiabilityRatio float64 // percent, liabilities / assets
	MarketCap      decimal.Decimal
}

// Thresholds are the screening floors and ceilings. All must pass.
type Thresholds struct {
	MaxPE             float64
	MinROE            float64
	MinDividendYield  float64
	MaxLiabilityRatio float64
	MinMarketCap      decimal.Decimal
	MinAvgAmount      decimal.Decimal // 60-day average daily traded amount
}

// DefaultThresholds returns the production screen: PE < 25, ROE > 10%,
// dividend yield > 1%, liability ratio < 70%, market cap > 3e9, average
// amount >= 3e7.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxPE:             25,
		MinROE:            10,
		MinDividendYield:  1,
		MaxLiabilityRatio: 70,
		MinMarketCap:      decimal.New(3_000_000_000, 0),
		MinAvgAmount:      decimal.New(30_000_000, 0),
	}
}

// Filter applies Thresholds to a universe. It is stateless and deterministic.
type Filter struct {
	t Thresholds
}

func NewFilter(t Thresholds) Filter { return Filter{t: t} }

// Eligible reports whether one symbol passes the screen. A nil snapshot means
// the data is missing and the symbol is excluded, not an error.
func (f Filter) Eligible(snap *Snapshot, avgAmount decimal.Decimal) bool {
	if snap == nil {
		return false
	}
	if avgAmount.LessThan(f.t.MinAvgAmount) {
		return false
	}
	if snap.PE <= 0 || snap.PE >= f.t.MaxPE {
		return false
	}
	if snap.ROE <= f.t.MinROE {
		return false
	}
	if snap.DividendYield <= f.t.MinDividendYield {
		return false
	}
	if snap.LiabilityRatio >= f.t.MaxLiabilityRatio {
		return false
	}
	if !snap.MarketCap.GreaterThan(f.t.MinMarketCap) {
		return false
	}
	return true
}

// Screen filters universe against the snapshots and average amounts and
// returns the eligible subset sorted ascending. Symbols missing a snapshot or
// an amount are skipped silently.
func (f Filter) Screen(
	universe []market.Symbol,
	snaps map[market.Symbol]Snapshot,
	avgAmounts map[market.Symbol]decimal.Decimal,
) []market.Symbol {
	var out []market.Symbol
	for _, sym := range universe {
		snap, ok := snaps[sym]
		if !ok {
			continue
		}
		amt, ok := avgAmounts[sym]
		if !ok {
			continue
		}
		if f.Eligible(&snap, amt) {
			out = append(out, sym)
		}
	}
	return market.SortSymbols(out)
}
