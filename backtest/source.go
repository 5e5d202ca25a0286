// Package backtest replays historical bars through the execution core,
// one cycle per trading date, and measures the result.
package backtest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/engine"
	"github.com/rustyeddy/equitrader/fundamentals"
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/rustyeddy/equitrader/store"
)

// Source adapts the sqlite store to the engine's data interface. Buys
// fill at the day's open; exits trigger against the day's low and high.
type Source struct {
	st    *store.SQLite
	index market.Symbol
}

func NewSource(st *store.SQLite, index market.Symbol) *Source {
	return &Source{st: st, index: index}
}

func (s *Source) IndexHistory(ctx context.Context, before time.Time) (market.History, error) {
	return s.st.History(ctx, s.index, before)
}

func (s *Source) History(ctx context.Context, sym market.Symbol, before time.Time) (market.History, error) {
	return s.st.History(ctx, sym, before)
}

// ActiveUniverse is every symbol that traded on the date except the
// benchmark index itself.
func (s *Source) ActiveUniverse(ctx context.Context, date time.Time) ([]market.Symbol, error) {
	syms, err := s.st.ActiveUniverse(ctx, date)
	if err != nil {
		return nil, err
	}
	out := syms[:0]
	for _, sym := range syms {
		if sym != s.index {
			out = append(out, sym)
		}
	}
	return out, nil
}

func (s *Source) Fundamentals(ctx context.Context, sym market.Symbol, date time.Time) (*fundamentals.Snapshot, error) {
	return s.st.FundamentalsAsOf(ctx, sym, date)
}

func (s *Source) DecisionPrice(ctx context.Context, sym market.Symbol, date time.Time) (decimal.Decimal, bool, error) {
	b, ok, err := s.st.BarOn(ctx, sym, date)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	return decimal.NewFromFloat(b.Open), true, nil
}

func (s *Source) TriggerQuote(ctx context.Context, sym market.Symbol, date time.Time) (engine.TriggerQuote, bool, error) {
	b, ok, err := s.st.BarOn(ctx, sym, date)
	if err != nil || !ok {
		return engine.TriggerQuote{}, false, err
	}
	return engine.TriggerQuote{
		Range: risk.TriggerRange{
			Low:  decimal.NewFromFloat(b.Low),
			High: decimal.NewFromFloat(b.High),
		},
		Close: decimal.NewFromFloat(b.Close),
	}, true, nil
}
