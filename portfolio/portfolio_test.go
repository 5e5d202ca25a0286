package portfolio

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/equitrader/market"
)

var (
	d1   = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	d2   = d1.AddDate(0, 0, 1)
	cash = decimal.NewFromInt(1_000_000)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(cash, zerolog.Nop())
}

func TestRoundLot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int64
	}{
		{0, 0},
		{99, 0},
		{100, 100},
		{250, 200},
		{1001, 1000},
		{-50, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundLot(tt.in), "RoundLot(%d)", tt.in)
	}
}

func TestCommissionFloor(t *testing.T) {
	t.Parallel()

	// 3bp of 10,000 is 3 yuan, below the 5 yuan floor.
	assert.True(t, Commission(dec("10000")).Equal(dec("5")))
	// 3bp of 100,000 is 30.
	assert.True(t, Commission(dec("100000")).Equal(dec("30")))
}

func TestOpenRoundsToLots(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	// 100,000 / 12.34 = 8103.7 shares, rounds to 8100.
	fill, err := m.Open("600519", d1, dec("12.34"), dec("100000"), "macd")
	require.NoError(t, err)
	assert.Equal(t, int64(8100), fill.Quantity)
	assert.Equal(t, Buy, fill.Side)

	p, ok := m.Position("600519")
	require.True(t, ok)
	assert.Equal(t, int64(8100), p.Quantity)
	assert.Equal(t, "macd", p.StrategyID)
	assert.Equal(t, 0, p.Layers)

	// Cash dropped by gross plus commission.
	gross := dec("12.34").Mul(decimal.NewFromInt(8100))
	wantCash := cash.Sub(gross).Sub(Commission(gross))
	assert.True(t, m.Cash().Equal(wantCash), "cash %s want %s", m.Cash(), wantCash)
}

func TestOpenRejectsTinyAllocation(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Open("600519", d1, dec("50"), dec("4000"), "macd")
	assert.ErrorIs(t, err, ErrZeroQuantity)
	assert.Equal(t, 0, m.Count())
}

func TestOpenDuplicate(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Open("600519", d1, dec("10"), dec("10000"), "macd")
	require.NoError(t, err)
	_, err = m.Open("600519", d1, dec("10"), dec("10000"), "macd")
	assert.ErrorIs(t, err, ErrPositionExists)
}

func TestOpenPositionLimit(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	for i := 0; i < MaxPositions; i++ {
		sym := market.Symbol(fmt.Sprintf("6000%02d", i))
		_, err := m.Open(sym, d1, dec("10"), dec("50000"), "macd")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, m.OpenSlots())
	_, err := m.Open("600099", d1, dec("10"), dec("50000"), "macd")
	assert.ErrorIs(t, err, ErrMaxPositions)
	assert.Equal(t, MaxPositions, m.Count())
}

func TestOpenInsufficientCashLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	m := NewManager(dec("5000"), zerolog.Nop())
	_, err := m.Open("600519", d1, dec("100"), dec("100000"), "macd")
	assert.ErrorIs(t, err, ErrInsufficientCash)
	assert.Equal(t, 0, m.Count())
	assert.True(t, m.Cash().Equal(dec("5000")))
}

func TestOpenSizesDownToAvailableCash(t *testing.T) {
	t.Parallel()

	m := NewManager(dec("50000"), zerolog.Nop())
	// Target wants 10000 shares; cash carries 4900 once fees count.
	fill, err := m.Open("600519", d1, dec("10"), dec("100000"), "macd")
	require.NoError(t, err)
	assert.Equal(t, int64(4900), fill.Quantity)

	cost := fill.Gross.Add(fill.Commission)
	assert.True(t, cost.LessThanOrEqual(dec("50000")), "cost %s", cost)
	assert.True(t, m.Cash().Equal(dec("50000").Sub(cost)))
}

func TestAddLayerHalvesAndAverages(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Open("600519", d1, dec("10"), dec("100000"), "macd")
	require.NoError(t, err) // 10000 shares at 10

	fill, err := m.AddLayer("600519", d2, dec("12"))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), fill.Quantity)
	assert.Equal(t, 1, fill.Layer)

	p, _ := m.Position("600519")
	assert.Equal(t, int64(15000), p.Quantity)
	// VWAP: (10000*10 + 5000*12) / 15000
	want := dec("160000").Div(decimal.NewFromInt(15000))
	assert.True(t, p.EntryPrice.Equal(want), "entry %s want %s", p.EntryPrice, want)
}

func TestAddLayerGrowsWeight(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Open("600519", d1, dec("10"), dec("100000"), "macd")
	require.NoError(t, err)
	p, _ := m.Position("600519")
	before := p.Weight
	eqBefore := m.TotalEquity()

	fill, err := m.AddLayer("600519", d2, dec("10"))
	require.NoError(t, err)

	// Weight grew by the layer's share of equity at add time.
	grew := p.Weight.Sub(before)
	want := fill.Gross.Div(eqBefore)
	assert.True(t, grew.Equal(want), "grew %s want %s", grew, want)
}

func TestAddLayerRejectsWeightOverflow(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	require.NoError(t, m.Restore(Snapshot{
		Cash: dec("100000"),
		Positions: []Position{{
			Symbol: "600519", StrategyID: "macd", EntryDate: d1,
			EntryPrice: dec("10"), Quantity: 10000,
			Weight: dec("0.98"), LastPrice: dec("10"),
		}},
	}))

	_, err := m.AddLayer("600519", d2, dec("10"))
	assert.ErrorIs(t, err, ErrWeightExceeded)
	p, _ := m.Position("600519")
	assert.Equal(t, int64(10000), p.Quantity, "rejected add must not mutate")
	assert.True(t, m.Cash().Equal(dec("100000")))
}

func TestAddLayerLimit(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Open("600519", d1, dec("10"), dec("80000"), "macd")
	require.NoError(t, err)
	_, err = m.AddLayer("600519", d2, dec("10"))
	require.NoError(t, err)
	_, err = m.AddLayer("600519", d2, dec("10"))
	require.NoError(t, err)
	_, err = m.AddLayer("600519", d2, dec("10"))
	assert.ErrorIs(t, err, ErrMaxLayers)
}

func TestCloseRealizesPnLNetOfCosts(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Open("600519", d1, dec("10"), dec("100000"), "macd")
	require.NoError(t, err)
	require.NoError(t, m.MarkPrice("600519", dec("12")))

	fill, err := m.Close("600519", d2, dec("12"), TakeProfit)
	require.NoError(t, err)
	assert.Equal(t, Sell, fill.Side)
	assert.Equal(t, TakeProfit, fill.Reason)

	gross := dec("12").Mul(decimal.NewFromInt(10000))
	wantPnL := gross.Sub(Commission(gross)).Sub(StampTax(gross)).Sub(dec("100000"))
	assert.True(t, fill.PnL.Equal(wantPnL), "pnl %s want %s", fill.PnL, wantPnL)

	_, ok := m.Position("600519")
	assert.False(t, ok)
}

func TestCloseUnknownSymbol(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Close("600519", d1, dec("10"), StopLoss)
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestSellableNextDayOnly(t *testing.T) {
	t.Parallel()

	p := &Position{EntryDate: d1}
	assert.False(t, p.Sellable(d1))
	assert.False(t, p.Sellable(d1.Add(6*time.Hour)))
	assert.True(t, p.Sellable(d2))
}

func TestUtilization(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	assert.True(t, m.Utilization().IsZero())

	_, err := m.Open("600519", d1, dec("10"), dec("500000"), "macd")
	require.NoError(t, err)
	u := m.Utilization()
	assert.True(t, u.GreaterThan(dec("0.49")), "utilization %s", u)
	assert.True(t, u.LessThan(dec("0.51")), "utilization %s", u)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Open("600519", d1, dec("10"), dec("100000"), "macd")
	require.NoError(t, err)
	_, err = m.Open("000001", d1, dec("8"), dec("50000"), "bollinger")
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, market.Symbol("000001"), snap.Positions[0].Symbol)

	restored := NewManager(decimal.Zero, zerolog.Nop())
	require.NoError(t, restored.Restore(snap))
	assert.True(t, restored.Cash().Equal(m.Cash()))
	assert.Equal(t, m.Count(), restored.Count())
	p, ok := restored.Position("600519")
	require.True(t, ok)
	assert.Equal(t, int64(10000), p.Quantity)
}

func TestRestoreRejectsDuplicates(t *testing.T) {
	t.Parallel()

	snap := Snapshot{Cash: decimal.Zero, Positions: []Position{
		{Symbol: "600519"}, {Symbol: "600519"},
	}}
	err := NewManager(decimal.Zero, zerolog.Nop()).Restore(snap)
	assert.ErrorContains(t, err, "duplicate")
}
