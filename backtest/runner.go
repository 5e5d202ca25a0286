package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/equitrader/engine"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/regime"
	"github.com/rustyeddy/equitrader/store"
)

// Result summarizes one completed replay.
type Result struct {
	Start        time.Time
	End          time.Time
	Days         int
	InitialCash  decimal.Decimal
	FinalEquity  decimal.Decimal
	TotalReturn  float64 // fraction, e.g. 0.12
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64
	Sharpe       float64 // annualized from daily returns
	MaxDrawdown  float64 // fraction, positive number
	RegimeDays   map[regime.Regime]int
	Exits        map[portfolio.CloseReason]int
}

// Runner drives the core over every trading date in a window.
type Runner struct {
	core *engine.Core
	st   *store.SQLite
	log  zerolog.Logger
}

func NewRunner(core *engine.Core, st *store.SQLite, log zerolog.Logger) *Runner {
	return &Runner{core: core, st: st, log: log.With().Str("component", "backtest").Logger()}
}

const tradingDaysPerYear = 244 // A-share calendar

// Run replays [start, end] inclusive. The regime classified each day is
// persisted to the store's regime history, so a finished run documents
// when the market state flipped.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (Result, error) {
	dates, err := r.st.TradingDates(ctx, start, end)
	if err != nil {
		return Result{}, err
	}
	if len(dates) == 0 {
		return Result{}, fmt.Errorf("no trading dates in [%s, %s]",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	res := Result{
		Start:       dates[0],
		End:         dates[len(dates)-1],
		Days:        len(dates),
		InitialCash: r.core.Portfolio().TotalEquity(),
		RegimeDays:  make(map[regime.Regime]int),
	}

	equity := make([]float64, 0, len(dates))
	var closed []portfolio.Fill
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cycle, err := r.core.RunCycle(ctx, date)
		if err != nil {
			return res, fmt.Errorf("cycle %s: %w", date.Format("2006-01-02"), err)
		}
		res.RegimeDays[cycle.Regime]++
		if err := r.st.SaveRegime(ctx, date, cycle.Classification); err != nil {
			return res, err
		}
		for _, f := range cycle.Closed {
			res.Trades++
			if f.PnL.IsPositive() {
				res.Wins++
			} else {
				res.Losses++
			}
		}
		closed = append(closed, cycle.Closed...)
		eq, _ := cycle.Equity.Float64()
		equity = append(equity, eq)
	}
	res.Exits = ClosedBy(closed)

	res.FinalEquity = r.core.Portfolio().TotalEquity()
	if res.InitialCash.IsPositive() {
		res.TotalReturn, _ = res.FinalEquity.Sub(res.InitialCash).Div(res.InitialCash).Float64()
	}
	if res.Trades > 0 {
		res.WinRate = float64(res.Wins) / float64(res.Trades)
	}
	res.Sharpe = sharpe(equity)
	res.MaxDrawdown = maxDrawdown(equity)

	r.log.Info().
		Int("days", res.Days).
		Int("trades", res.Trades).
		Float64("return", res.TotalReturn).
		Float64("sharpe", res.Sharpe).
		Float64("max_drawdown", res.MaxDrawdown).
		Msg("backtest complete")
	return res, nil
}

// sharpe annualizes the mean/stddev of daily equity returns. Zero when
// the curve is too short or never moves.
func sharpe(equity []float64) float64 {
	rets := dailyReturns(equity)
	if len(rets) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(rets, nil)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the deepest peak-to-trough fall, as a positive fraction.
func maxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func dailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		out = append(out, equity[i]/equity[i-1]-1)
	}
	return out
}

// ClosedBy tallies result fills by exit reason, for reporting.
func ClosedBy(fills []portfolio.Fill) map[portfolio.CloseReason]int {
	out := make(map[portfolio.CloseReason]int)
	for _, f := range fills {
		if f.Side == portfolio.Sell {
			out[f.Reason]++
		}
	}
	return out
}
