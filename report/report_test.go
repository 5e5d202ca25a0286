package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/equitrader/backtest"
	"github.com/rustyeddy/equitrader/engine"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/regime"
	"github.com/rustyeddy/equitrader/scoring"
)

func TestBacktestReport(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	res := backtest.Result{
		Start:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Days:        120,
		InitialCash: decimal.NewFromInt(1_000_000),
		FinalEquity: decimal.NewFromInt(1_120_000),
		TotalReturn: 0.12,
		Trades:      18, Wins: 11, Losses: 7, WinRate: 11.0 / 18.0,
		Sharpe:      1.34,
		MaxDrawdown: 0.083,
		RegimeDays:  map[regime.Regime]int{regime.Bull: 70, regime.Range: 50},
	}
	require.NoError(t, Backtest(&sb, res))
	out := sb.String()
	assert.Contains(t, out, "2024-01-02 .. 2024-06-28 (120 days)")
	assert.Contains(t, out, "12.00%")
	assert.Contains(t, out, "18 (11 won, 7 lost)")
	assert.Contains(t, out, "Days in bull")
	assert.NotContains(t, out, "Days in bear")
}

func TestPositionsReport(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	snap := portfolio.Snapshot{
		Cash: decimal.NewFromInt(250_000),
		Positions: []portfolio.Position{{
			Symbol: "600519", StrategyID: "macd",
			EntryPrice: decimal.NewFromInt(10),
			LastPrice:  decimal.RequireFromString("11.5"),
			Quantity:   10000, Layers: 1,
		}},
	}
	require.NoError(t, Positions(&sb, snap))
	out := sb.String()
	assert.Contains(t, out, "600519")
	assert.Contains(t, out, "15.00%")
	assert.Contains(t, out, "250000.00")
}

func TestFillsReport(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	fills := []journal.FillRecord{
		{
			Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Symbol: "600519",
			Side: portfolio.Buy, Quantity: 10000,
			Price: decimal.NewFromInt(10), PnL: decimal.Zero,
		},
		{
			Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), Symbol: "600519",
			Side: portfolio.Sell, Quantity: 10000, Reason: string(portfolio.TakeProfit),
			Price: decimal.NewFromInt(12), PnL: decimal.NewFromInt(19844),
		},
	}
	require.NoError(t, Fills(&sb, fills))
	out := sb.String()
	assert.Contains(t, out, "take_profit")
	assert.Contains(t, out, "19844.00")
	// Buys show no pnl.
	assert.Contains(t, out, "buy")
}

func TestDailyReport(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	res := engine.CycleResult{
		Date:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Regime: regime.Bull,
		Classification: regime.Classification{
			Regime: regime.Bull, Confidence: 72,
			Reason:    "trend score above bull threshold",
			SubScores: map[string]float64{"ma": 0.8, "trend": 0.6},
		},
		Candidates: []scoring.Composite{
			{Symbol: "000001", Score: 64.5, Contributing: []string{"macd", "ma_cross"}},
			{Symbol: "600519", Score: 48.0, Contributing: []string{"breakout_high"}},
		},
		Opened: []portfolio.Fill{{
			Symbol: "000001", Side: portfolio.Buy, Quantity: 10000,
			Price: decimal.NewFromInt(10),
		}},
		Equity: decimal.NewFromInt(1_000_000),
	}
	require.NoError(t, Daily(&sb, res))
	out := sb.String()
	assert.Contains(t, out, "bull (72% confidence)")
	assert.Contains(t, out, "macd,ma_cross")
	assert.Contains(t, out, "64.5")
	assert.Contains(t, out, "buy")
	assert.Contains(t, out, "1000000.00")
}

func TestDailyReportNoOrders(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	res := engine.CycleResult{
		Date:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Regime: regime.Range,
		Classification: regime.Classification{
			Regime: regime.Range, Confidence: 55,
		},
		Equity: decimal.NewFromInt(1_000_000),
	}
	require.NoError(t, Daily(&sb, res))
	assert.Contains(t, sb.String(), "No orders.")
}
