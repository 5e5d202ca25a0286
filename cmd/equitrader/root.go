package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/equitrader/config"
	"github.com/rustyeddy/equitrader/engine"
	"github.com/rustyeddy/equitrader/fundamentals"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/notify"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/regime"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/rustyeddy/equitrader/store"
	"github.com/rustyeddy/equitrader/strategies"
)

var cfgPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "equitrader",
		Short:         "Regime-aware equity trading engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (yaml)")

	cmd.AddCommand(
		newBacktestCmd(),
		newPremarketCmd(),
		newMonitorCmd(),
		newLiveCmd(),
		newReportCmd(),
		newJournalCmd(),
	)
	return cmd
}

// app bundles everything a subcommand needs.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	st  *store.SQLite
	jr  *journal.SQLite
}

func openApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bad log_level %q: %w", cfg.LogLevel, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	st, err := store.Open(cfg.DataDB)
	if err != nil {
		return nil, err
	}
	jr, err := journal.NewSQLite(cfg.JournalDB)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, st: st, jr: jr}, nil
}

func (a *app) Close() {
	a.jr.Close()
	a.st.Close()
}

func (a *app) notifier() notify.Notifier {
	if a.cfg.TelegramToken == "" {
		return notify.NewLog(a.log)
	}
	tg, err := notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID)
	if err != nil {
		a.log.Warn().Err(err).Msg("telegram unavailable, falling back to log notifier")
		return notify.NewLog(a.log)
	}
	return tg
}

// buildCore assembles the execution core, restoring the persisted
// portfolio when one exists.
func (a *app) buildCore(cmd *cobra.Command, rec engine.Recorder, data engine.DataSource) (*engine.Core, error) {
	pm := portfolio.NewManager(decimal.NewFromFloat(a.cfg.InitialCash), a.log)
	snap, ok, err := a.st.LoadPortfolio(cmd.Context())
	if err != nil {
		return nil, err
	}
	if ok {
		if err := pm.Restore(snap); err != nil {
			return nil, err
		}
	}

	limits := risk.Limits{
		TakeProfitPct: decimal.NewFromFloat(a.cfg.TakeProfitPct),
		StopLossPct:   decimal.NewFromFloat(a.cfg.StopLossPct),
		ExitThreshold: a.cfg.ExitThreshold,
	}
	engCfg := engine.Config{
		UtilizationGate: decimal.NewFromFloat(a.cfg.UtilizationGate),
		TargetWeight:    decimal.NewFromFloat(a.cfg.TargetWeight),
		BuyThreshold:    a.cfg.BuyThreshold,
		AddOnTriggerPct: decimal.NewFromFloat(a.cfg.AddOnTriggerPct),
	}

	return engine.New(engCfg, data, pm, risk.NewManager(limits, a.log),
		regime.NewClassifier(a.log), strategies.Library(),
		fundamentals.NewFilter(fundamentals.DefaultThresholds()), rec, a.log), nil
}
