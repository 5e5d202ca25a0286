package journal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/equitrader/portfolio"
)

func openTestJournal(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sellFill(pnl string, date time.Time) portfolio.Fill {
	return portfolio.Fill{
		Symbol: "600519", Side: portfolio.Sell, Date: date,
		Price:      decimal.RequireFromString("12"),
		Quantity:   10000,
		Gross:      decimal.RequireFromString("120000"),
		Commission: decimal.RequireFromString("36"),
		StampTax:   decimal.RequireFromString("120"),
		Reason:     portfolio.TakeProfit,
		StrategyID: "macd",
		PnL:        decimal.RequireFromString(pnl),
	}
}

func TestRecordFillRoundTrip(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	ctx := context.Background()
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordFill(ctx, sellFill("19844", date), "2024-06-04:600519:take_profit"))

	rec, err := j.GetFillByTag(ctx, "2024-06-04:600519:take_profit")
	require.NoError(t, err)
	assert.Equal(t, portfolio.Sell, rec.Side)
	assert.Equal(t, int64(10000), rec.Quantity)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("12")))
	assert.True(t, rec.PnL.Equal(decimal.RequireFromString("19844")))
	assert.Equal(t, "macd", rec.StrategyID)
}

func TestRecordFillIdempotentByTag(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	ctx := context.Background()
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	tag := "2024-06-04:600519:stop_loss"

	require.NoError(t, j.RecordFill(ctx, sellFill("-5000", date), tag))
	require.NoError(t, j.RecordFill(ctx, sellFill("-5000", date), tag))

	fills, err := j.ListFillsBetween(ctx, date.AddDate(0, 0, -1), date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, fills, 1)
}

func TestHasTag(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	ctx := context.Background()
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)

	ok, err := j.HasTag(ctx, "2024-06-04:600519:open")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, j.RecordFill(ctx, sellFill("1", date), "2024-06-04:600519:open"))
	ok, err = j.HasTag(ctx, "2024-06-04:600519:open")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEquityUpsert(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	ctx := context.Background()
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordEquity(ctx, date, decimal.NewFromInt(1_000_000), decimal.NewFromInt(900_000)))
	require.NoError(t, j.RecordEquity(ctx, date, decimal.NewFromInt(1_010_000), decimal.NewFromInt(910_000)))

	curve, err := j.EquityCurve(ctx)
	require.NoError(t, err)
	require.Len(t, curve, 1)
	assert.True(t, curve[0].Equity.Equal(decimal.NewFromInt(1_010_000)))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)
	ctx := context.Background()
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordFill(ctx, sellFill("1000", date), "a"))
	require.NoError(t, j.RecordFill(ctx, sellFill("-400", date.AddDate(0, 0, 1)), "b"))
	require.NoError(t, j.RecordFill(ctx, sellFill("250", date.AddDate(0, 0, 2)), "c"))

	s, err := j.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.True(t, s.TotalPnL.Equal(decimal.NewFromInt(850)))
}
