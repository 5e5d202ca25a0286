package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
)

// Side labels a fill.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Fill is the settled result of one executed order, costs included.
type Fill struct {
	Symbol     market.Symbol
	Side       Side
	Date       time.Time
	Price      decimal.Decimal
	Quantity   int64
	Gross      decimal.Decimal
	Commission decimal.Decimal
	StampTax   decimal.Decimal
	Reason     CloseReason // empty on buys
	StrategyID string
	Layer      int // 0 on the opening buy
	PnL        decimal.Decimal
}

// Manager owns all portfolio mutation. Each method either applies its
// entire effect or, on error, leaves the portfolio untouched. It is not
// safe for concurrent use; callers serialize through a single goroutine.
type Manager struct {
	cash      decimal.Decimal
	positions map[market.Symbol]*Position
	log       zerolog.Logger
}

func NewManager(initialCash decimal.Decimal, log zerolog.Logger) *Manager {
	return &Manager{
		cash:      initialCash,
		positions: make(map[market.Symbol]*Position),
		log:       log.With().Str("component", "portfolio").Logger(),
	}
}

func (m *Manager) Cash() decimal.Decimal { return m.cash }

// Position returns the open position for sym, if any.
func (m *Manager) Position(sym market.Symbol) (*Position, bool) {
	p, ok := m.positions[sym]
	return p, ok
}

// Symbols returns the held symbols in ascending order.
func (m *Manager) Symbols() []market.Symbol {
	syms := make([]market.Symbol, 0, len(m.positions))
	for s := range m.positions {
		syms = append(syms, s)
	}
	return market.SortSymbols(syms)
}

func (m *Manager) Count() int { return len(m.positions) }

// OpenSlots is how many new positions may still be opened.
func (m *Manager) OpenSlots() int { return MaxPositions - len(m.positions) }

// TotalEquity is cash plus the marked value of every position.
func (m *Manager) TotalEquity() decimal.Decimal {
	eq := m.cash
	for _, p := range m.positions {
		eq = eq.Add(p.MarketValue())
	}
	return eq
}

// Invested is the marked value of all positions.
func (m *Manager) Invested() decimal.Decimal {
	v := decimal.Zero
	for _, p := range m.positions {
		v = v.Add(p.MarketValue())
	}
	return v
}

// Utilization is invested value over total equity, in [0, 1].
func (m *Manager) Utilization() decimal.Decimal {
	eq := m.TotalEquity()
	if eq.IsZero() {
		return decimal.Zero
	}
	return m.Invested().Div(eq)
}

func (m *Manager) weightSum() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range m.positions {
		sum = sum.Add(p.Weight)
	}
	return sum
}

// affordable sizes a buy to the smaller of targetValue and cash, in
// whole lots, shrinking until gross plus commission fits the cash on
// hand. ok=false when not even one lot fits.
func (m *Manager) affordable(price, targetValue decimal.Decimal) (int64, decimal.Decimal, decimal.Decimal, bool) {
	budget := decimal.Min(targetValue, m.cash)
	qty := RoundLot(budget.Div(price).IntPart())
	for qty > 0 {
		gross := price.Mul(decimal.NewFromInt(qty))
		fee := Commission(gross)
		if gross.Add(fee).LessThanOrEqual(m.cash) {
			return qty, gross, fee, true
		}
		qty -= LotSize
	}
	return 0, decimal.Zero, decimal.Zero, false
}

// MarkPrice updates a position's last traded price.
func (m *Manager) MarkPrice(sym market.Symbol, price decimal.Decimal) error {
	p, ok := m.positions[sym]
	if !ok {
		return fmt.Errorf("mark %s: %w", sym, ErrNoPosition)
	}
	p.LastPrice = price
	return nil
}

// Open buys a new position targeting targetValue of stock at price,
// rounded down to whole lots. When cash cannot cover the target the
// quantity is sized down to what cash (fees included) can carry; the
// order fails only when even a single lot is unaffordable. All limits
// are checked before any state changes: position count, duplicate
// symbol, weight sum and cash.
func (m *Manager) Open(sym market.Symbol, date time.Time, price, targetValue decimal.Decimal, strategyID string) (Fill, error) {
	if len(m.positions) >= MaxPositions {
		return Fill{}, fmt.Errorf("open %s: %w", sym, ErrMaxPositions)
	}
	if _, dup := m.positions[sym]; dup {
		return Fill{}, fmt.Errorf("open %s: %w", sym, ErrPositionExists)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return Fill{}, fmt.Errorf("open %s: non-positive price %s", sym, price)
	}
	if RoundLot(targetValue.Div(price).IntPart()) == 0 {
		return Fill{}, fmt.Errorf("open %s: %w", sym, ErrZeroQuantity)
	}

	qty, gross, fee, ok := m.affordable(price, targetValue)
	if !ok {
		return Fill{}, fmt.Errorf("open %s: one lot at %s exceeds cash %s: %w",
			sym, price, m.cash, ErrInsufficientCash)
	}
	cost := gross.Add(fee)

	equity := m.TotalEquity()
	weight := decimal.Zero
	if equity.IsPositive() {
		weight = gross.Div(equity)
	}
	if m.weightSum().Add(weight).GreaterThan(decimal.NewFromInt(1)) {
		return Fill{}, fmt.Errorf("open %s: %w", sym, ErrWeightExceeded)
	}

	m.cash = m.cash.Sub(cost)
	m.positions[sym] = &Position{
		Symbol:     sym,
		StrategyID: strategyID,
		EntryDate:  market.Day(date),
		EntryPrice: price,
		Quantity:   qty,
		Weight:     weight,
		LastPrice:  price,
	}
	m.log.Info().
		Str("symbol", string(sym)).
		Str("strategy", strategyID).
		Int64("qty", qty).
		Str("price", price.String()).
		Msg("opened position")

	return Fill{
		Symbol: sym, Side: Buy, Date: market.Day(date),
		Price: price, Quantity: qty, Gross: gross,
		Commission: fee, StrategyID: strategyID,
	}, nil
}

// maxLayers bounds add-on buys per position.
const maxLayers = 2

// AddLayer buys half the current quantity on top of an existing position,
// up to two layers. The entry price becomes the volume-weighted average.
func (m *Manager) AddLayer(sym market.Symbol, date time.Time, price decimal.Decimal) (Fill, error) {
	p, ok := m.positions[sym]
	if !ok {
		return Fill{}, fmt.Errorf("add %s: %w", sym, ErrNoPosition)
	}
	if p.Layers >= maxLayers {
		return Fill{}, fmt.Errorf("add %s: %w", sym, ErrMaxLayers)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return Fill{}, fmt.Errorf("add %s: non-positive price %s", sym, price)
	}

	qty := RoundLot(p.Quantity / 2)
	if qty == 0 {
		return Fill{}, fmt.Errorf("add %s: %w", sym, ErrZeroQuantity)
	}
	gross := price.Mul(decimal.NewFromInt(qty))
	fee := Commission(gross)
	cost := gross.Add(fee)
	if cost.GreaterThan(m.cash) {
		return Fill{}, fmt.Errorf("add %s: need %s, have %s: %w", sym, cost, m.cash, ErrInsufficientCash)
	}

	equity := m.TotalEquity()
	addWeight := decimal.Zero
	if equity.IsPositive() {
		addWeight = gross.Div(equity)
	}
	if m.weightSum().Add(addWeight).GreaterThan(decimal.NewFromInt(1)) {
		return Fill{}, fmt.Errorf("add %s: %w", sym, ErrWeightExceeded)
	}

	oldValue := p.EntryPrice.Mul(decimal.NewFromInt(p.Quantity))
	newQty := p.Quantity + qty

	m.cash = m.cash.Sub(cost)
	p.EntryPrice = oldValue.Add(gross).Div(decimal.NewFromInt(newQty))
	p.Quantity = newQty
	p.Weight = p.Weight.Add(addWeight)
	p.LastPrice = price
	p.Layers++

	m.log.Info().
		Str("symbol", string(sym)).
		Int("layer", p.Layers).
		Int64("qty", qty).
		Str("price", price.String()).
		Msg("added position layer")

	return Fill{
		Symbol: sym, Side: Buy, Date: market.Day(date),
		Price: price, Quantity: qty, Gross: gross,
		Commission: fee, StrategyID: p.StrategyID, Layer: p.Layers,
	}, nil
}

// Close sells the entire position at price, deducting commission and
// stamp tax, and reports realized profit net of costs.
func (m *Manager) Close(sym market.Symbol, date time.Time, price decimal.Decimal, reason CloseReason) (Fill, error) {
	p, ok := m.positions[sym]
	if !ok {
		return Fill{}, fmt.Errorf("close %s: %w", sym, ErrNoPosition)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return Fill{}, fmt.Errorf("close %s: non-positive price %s", sym, price)
	}

	gross := price.Mul(decimal.NewFromInt(p.Quantity))
	fee := Commission(gross)
	tax := StampTax(gross)
	proceeds := gross.Sub(fee).Sub(tax)
	pnl := proceeds.Sub(p.EntryPrice.Mul(decimal.NewFromInt(p.Quantity)))

	m.cash = m.cash.Add(proceeds)
	delete(m.positions, sym)

	m.log.Info().
		Str("symbol", string(sym)).
		Str("reason", string(reason)).
		Str("pnl", pnl.StringFixed(2)).
		Msg("closed position")

	return Fill{
		Symbol: sym, Side: Sell, Date: market.Day(date),
		Price: price, Quantity: p.Quantity, Gross: gross,
		Commission: fee, StampTax: tax, Reason: reason,
		StrategyID: p.StrategyID, PnL: pnl,
	}, nil
}

// Snapshot is a point-in-time copy of portfolio state for persistence.
type Snapshot struct {
	Cash      decimal.Decimal
	Positions []Position // symbol-ascending
}

// Snapshot copies the current state; positions are sorted by symbol.
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{Cash: m.cash, Positions: make([]Position, 0, len(m.positions))}
	for _, p := range m.positions {
		snap.Positions = append(snap.Positions, *p)
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		return snap.Positions[i].Symbol < snap.Positions[j].Symbol
	})
	return snap
}

// Restore replaces all state with a previously captured snapshot.
func (m *Manager) Restore(snap Snapshot) error {
	if len(snap.Positions) > MaxPositions {
		return fmt.Errorf("restore: %d positions: %w", len(snap.Positions), ErrMaxPositions)
	}
	positions := make(map[market.Symbol]*Position, len(snap.Positions))
	for i := range snap.Positions {
		p := snap.Positions[i]
		if _, dup := positions[p.Symbol]; dup {
			return fmt.Errorf("restore: duplicate symbol %s", p.Symbol)
		}
		positions[p.Symbol] = &p
	}
	m.cash = snap.Cash
	m.positions = positions
	return nil
}
