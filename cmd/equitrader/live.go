package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/equitrader/live"
	"github.com/rustyeddy/equitrader/report"
)

// buildTrader wires a live session: reconcile persisted state, resume
// pending intents, then hand a ready core to the trader loop.
func buildTrader(cmd *cobra.Command, a *app) (*live.Trader, *live.TickQueue, error) {
	ctx := cmd.Context()

	st, _, err := live.LoadState(a.cfg.StateFile)
	if err != nil {
		return nil, nil, err
	}
	snap, _, err := a.st.LoadPortfolio(ctx)
	if err != nil {
		return nil, nil, err
	}
	pending, err := live.Reconcile(ctx, snap, a.jr, st.Intents)
	if err != nil {
		return nil, nil, err
	}

	notifier := a.notifier()
	gw := live.NewRetryGateway(live.NewPaperGateway(a.log), notifier, a.log)
	rec := live.NewRecorder(a.jr, gw, a.cfg.StateFile, live.State{TradingDate: st.TradingDate}, a.log)
	if len(pending) > 0 {
		a.log.Info().Int("pending", len(pending)).Msg("resuming unfinished orders")
		if err := live.Resume(ctx, pending, rec); err != nil {
			return nil, nil, err
		}
	}

	// Trigger quotes and fill prices come from the latest tick; history
	// and screening still read the store.
	src := live.NewSource(newSource(a))
	core, err := a.buildCore(cmd, rec, src)
	if err != nil {
		return nil, nil, err
	}
	queue := live.NewTickQueue(a.cfg.TickQueueSize)
	trader := live.NewTrader(core, src, a.st, queue, notifier,
		a.cfg.PremarketCron, a.cfg.MonitorInterval, a.log)
	return trader, queue, nil
}

func newPremarketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "premarket",
		Short: "Run one pre-open decision cycle and print the daily sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			trader, _, err := buildTrader(cmd, a)
			if err != nil {
				return err
			}
			res, err := trader.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return report.Daily(os.Stdout, res)
		},
	}
}

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run one intraday monitoring pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			trader, _, err := buildTrader(cmd, a)
			if err != nil {
				return err
			}
			_, err = trader.RunOnce(cmd.Context())
			return err
		},
	}
}

func newLiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Run the full live session until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			trader, queue, err := buildTrader(cmd, a)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.cfg.FeedURL != "" {
				feed := live.NewFeed(a.cfg.FeedURL, queue, a.log)
				go func() {
					if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
						a.log.Error().Err(err).Msg("feed stopped")
					}
				}()
			}
			return trader.Run(ctx)
		},
	}
}
