package live

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/engine"
	"github.com/rustyeddy/equitrader/fundamentals"
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/risk"
)

// Source adapts a store-backed DataSource for a live session: history,
// universe and fundamentals come from the store, but trigger quotes and
// fill prices come from the latest streamed tick. During the session
// there is no bar for today, so without the tick overlay stop-loss and
// take-profit checks would have nothing to evaluate against.
type Source struct {
	hist engine.DataSource

	mu     sync.RWMutex
	prices map[market.Symbol]decimal.Decimal
}

func NewSource(hist engine.DataSource) *Source {
	return &Source{
		hist:   hist,
		prices: make(map[market.Symbol]decimal.Decimal),
	}
}

// SetPrice records the latest traded price for a symbol.
func (s *Source) SetPrice(sym market.Symbol, price decimal.Decimal) {
	s.mu.Lock()
	s.prices[sym] = price
	s.mu.Unlock()
}

func (s *Source) price(sym market.Symbol) (decimal.Decimal, bool) {
	s.mu.RLock()
	p, ok := s.prices[sym]
	s.mu.RUnlock()
	return p, ok
}

func (s *Source) IndexHistory(ctx context.Context, before time.Time) (market.History, error) {
	return s.hist.IndexHistory(ctx, before)
}

func (s *Source) History(ctx context.Context, sym market.Symbol, before time.Time) (market.History, error) {
	return s.hist.History(ctx, sym, before)
}

func (s *Source) ActiveUniverse(ctx context.Context, date time.Time) ([]market.Symbol, error) {
	return s.hist.ActiveUniverse(ctx, date)
}

func (s *Source) Fundamentals(ctx context.Context, sym market.Symbol, date time.Time) (*fundamentals.Snapshot, error) {
	return s.hist.Fundamentals(ctx, sym, date)
}

// DecisionPrice fills at the latest tick when one has arrived, otherwise
// at whatever the store has for the date.
func (s *Source) DecisionPrice(ctx context.Context, sym market.Symbol, date time.Time) (decimal.Decimal, bool, error) {
	if p, ok := s.price(sym); ok {
		return p, true, nil
	}
	return s.hist.DecisionPrice(ctx, sym, date)
}

// TriggerQuote collapses to the latest tick: a live pass evaluates exits
// against the current price, not a completed bar. ok=false only when no
// tick has arrived and the store has no bar either.
func (s *Source) TriggerQuote(ctx context.Context, sym market.Symbol, date time.Time) (engine.TriggerQuote, bool, error) {
	if p, ok := s.price(sym); ok {
		return engine.TriggerQuote{
			Range: risk.TriggerRange{Low: p, High: p},
			Close: p,
		}, true, nil
	}
	return s.hist.TriggerQuote(ctx, sym, date)
}
