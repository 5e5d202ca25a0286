// Package report renders human-readable summaries of runs, positions and
// trade history.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/backtest"
	"github.com/rustyeddy/equitrader/engine"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/regime"
)

// Backtest writes the replay result sheet.
func Backtest(w io.Writer, res backtest.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Period\t%s .. %s (%d days)\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"), res.Days)
	fmt.Fprintf(tw, "Initial\t%s\n", res.InitialCash.StringFixed(2))
	fmt.Fprintf(tw, "Final\t%s\n", res.FinalEquity.StringFixed(2))
	fmt.Fprintf(tw, "Return\t%.2f%%\n", res.TotalReturn*100)
	fmt.Fprintf(tw, "Trades\t%d (%d won, %d lost)\n", res.Trades, res.Wins, res.Losses)
	fmt.Fprintf(tw, "Win rate\t%.1f%%\n", res.WinRate*100)
	fmt.Fprintf(tw, "Sharpe\t%.2f\n", res.Sharpe)
	fmt.Fprintf(tw, "Max drawdown\t%.2f%%\n", res.MaxDrawdown*100)
	for _, rg := range []regime.Regime{regime.Bull, regime.Bear, regime.Range} {
		if n := res.RegimeDays[rg]; n > 0 {
			fmt.Fprintf(tw, "Days in %s\t%d\n", rg, n)
		}
	}
	for _, reason := range []portfolio.CloseReason{
		portfolio.TakeProfit, portfolio.StopLoss, portfolio.RegimeExit, portfolio.StrategySignal,
	} {
		if n := res.Exits[reason]; n > 0 {
			fmt.Fprintf(tw, "Exits by %s\t%d\n", reason, n)
		}
	}
	return tw.Flush()
}

// Daily writes the morning sheet for one cycle: the regime call with its
// diagnostics, the ranked candidates, and every order the cycle placed.
func Daily(w io.Writer, res engine.CycleResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	cls := res.Classification
	fmt.Fprintf(tw, "Date\t%s\n", res.Date.Format("2006-01-02"))
	fmt.Fprintf(tw, "Regime\t%s (%.0f%% confidence)\n", res.Regime, cls.Confidence)
	if cls.Reason != "" {
		fmt.Fprintf(tw, "Reason\t%s\n", cls.Reason)
	}

	keys := make([]string, 0, len(cls.SubScores))
	for k := range cls.SubScores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%+.2f\n", k, cls.SubScores[k])
	}

	if len(res.Candidates) > 0 {
		fmt.Fprintf(tw, "\nRANK\tSYMBOL\tSCORE\tSTRATEGIES\n")
		for i, c := range res.Candidates {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\n",
				i+1, c.Symbol, c.Score, strings.Join(c.Contributing, ","))
		}
	}

	orders := 0
	write := func(action string, fills []portfolio.Fill) {
		for _, f := range fills {
			if orders == 0 {
				fmt.Fprintf(tw, "\nACTION\tSYMBOL\tQTY\tPRICE\tREASON\n")
			}
			orders++
			reason := string(f.Reason)
			if reason == "" {
				reason = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				action, f.Symbol, f.Quantity, f.Price.StringFixed(2), reason)
		}
	}
	write("sell", res.Closed)
	write("buy", res.Opened)
	write("add", res.Added)
	if orders == 0 {
		fmt.Fprintf(tw, "\nNo orders.\n")
	}

	fmt.Fprintf(tw, "Equity\t%s\n", res.Equity.StringFixed(2))
	return tw.Flush()
}

// Positions writes the open book.
func Positions(w io.Writer, snap portfolio.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SYMBOL\tSTRATEGY\tQTY\tENTRY\tLAST\tRETURN\tLAYERS\n")
	for _, p := range snap.Positions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s%%\t%d\n",
			p.Symbol, p.StrategyID, p.Quantity,
			p.EntryPrice.StringFixed(2), p.LastPrice.StringFixed(2),
			p.Return().Mul(hundred).StringFixed(2), p.Layers)
	}
	fmt.Fprintf(tw, "\nCash\t%s\n", snap.Cash.StringFixed(2))
	return tw.Flush()
}

// Fills writes trade history rows, oldest first.
func Fills(w io.Writer, fills []journal.FillRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "DATE\tSYMBOL\tSIDE\tQTY\tPRICE\tREASON\tPNL\n")
	for _, f := range fills {
		reason := f.Reason
		if reason == "" {
			reason = "-"
		}
		pnl := "-"
		if f.Side == portfolio.Sell {
			pnl = f.PnL.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			f.Date.Format("2006-01-02"), f.Symbol, f.Side,
			f.Quantity, f.Price.StringFixed(2), reason, pnl)
	}
	return tw.Flush()
}

var hundred = decimal.NewFromInt(100)
