package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/report"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the current portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			snap, ok, err := a.st.LoadPortfolio(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				cmd.Println("no portfolio saved yet")
				return nil
			}
			return report.Positions(os.Stdout, snap)
		},
	}
}

func newJournalCmd() *cobra.Command {
	var dayStr string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show executed trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Time{}
			end := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
			if dayStr != "" {
				day, err := parseDate(dayStr)
				if err != nil {
					return err
				}
				start = market.Day(day)
				end = start.AddDate(0, 0, 1)
			}

			fills, err := a.jr.ListFillsBetween(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			if err := report.Fills(os.Stdout, fills); err != nil {
				return err
			}

			sum, err := a.jr.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("\n%d trades, %d won, %d lost, realized %s\n",
				sum.Trades, sum.Wins, sum.Losses, sum.TotalPnL.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&dayStr, "day", "", "show a single day (YYYY-MM-DD)")
	return cmd
}
