package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/equitrader/backtest"
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/report"
)

func newSource(a *app) *backtest.Source {
	return backtest.NewSource(a.st, market.Symbol(a.cfg.IndexSymbol))
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func newBacktestCmd() *cobra.Command {
	var startStr, endStr string

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical bars through the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate(startStr)
			if err != nil {
				return err
			}
			end, err := parseDate(endStr)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			core, err := a.buildCore(cmd, a.jr, newSource(a))
			if err != nil {
				return err
			}
			runner := backtest.NewRunner(core, a.st, a.log)
			res, err := runner.Run(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			return report.Backtest(os.Stdout, res)
		},
	}
	cmd.Flags().StringVar(&startStr, "start", "", "first trading date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "last trading date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}
