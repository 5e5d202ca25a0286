// Package engine holds the execution core: one decision cycle that
// reclassifies the market regime, risk-checks every open position, then
// deploys free capital into the highest-scoring candidates. The same core
// drives historical replay and live trading; only the DataSource and
// Recorder differ.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/fundamentals"
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/regime"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/rustyeddy/equitrader/scoring"
	"github.com/rustyeddy/equitrader/strategies"
)

// TriggerQuote is the intraday price band plus the closing price for one
// symbol on one date.
type TriggerQuote struct {
	Range risk.TriggerRange
	Close decimal.Decimal
}

// DataSource supplies everything a cycle needs. History calls return bars
// strictly before the given date so decisions never see same-day data.
type DataSource interface {
	// IndexHistory returns the benchmark index bars before the date.
	IndexHistory(ctx context.Context, before time.Time) (market.History, error)
	// History returns one symbol's bars before the date.
	History(ctx context.Context, sym market.Symbol, before time.Time) (market.History, error)
	// ActiveUniverse lists symbols tradeable on the date, ascending.
	ActiveUniverse(ctx context.Context, date time.Time) ([]market.Symbol, error)
	// Fundamentals returns the snapshot effective on the date, or nil.
	Fundamentals(ctx context.Context, sym market.Symbol, date time.Time) (*fundamentals.Snapshot, error)
	// DecisionPrice is the price buys fill at on the date (the open).
	// ok=false when the symbol did not trade.
	DecisionPrice(ctx context.Context, sym market.Symbol, date time.Time) (decimal.Decimal, bool, error)
	// TriggerQuote returns the date's traded range and close.
	TriggerQuote(ctx context.Context, sym market.Symbol, date time.Time) (TriggerQuote, bool, error)
}

// Recorder persists what the core did. Implementations must treat Tag as
// an idempotency key: recording the same tag twice is a no-op.
type Recorder interface {
	RecordFill(ctx context.Context, fill portfolio.Fill, tag string) error
	RecordEquity(ctx context.Context, date time.Time, equity, cash decimal.Decimal) error
}

// NopRecorder drops everything.
type NopRecorder struct{}

func (NopRecorder) RecordFill(context.Context, portfolio.Fill, string) error { return nil }
func (NopRecorder) RecordEquity(context.Context, time.Time, decimal.Decimal, decimal.Decimal) error {
	return nil
}

// Config tunes the capital deployment rules.
type Config struct {
	// UtilizationGate stops new buys once invested/equity reaches it.
	UtilizationGate decimal.Decimal
	// TargetWeight sizes each new position as a fraction of equity.
	TargetWeight decimal.Decimal
	// BuyThreshold is the minimum composite score for an entry.
	BuyThreshold float64
	// AddOnTriggerPct is the move from entry that allows an add-on:
	// a gain in a bull market, a drawdown in bear and range markets.
	AddOnTriggerPct decimal.Decimal
}

// DefaultConfig: 90% utilization gate, 10% position slots, score 40 to
// buy, 5% moves to add.
func DefaultConfig() Config {
	return Config{
		UtilizationGate: decimal.NewFromFloat(0.90),
		TargetWeight:    decimal.NewFromFloat(0.10),
		BuyThreshold:    scoring.BuyThreshold,
		AddOnTriggerPct: decimal.NewFromFloat(0.05),
	}
}

// Core runs decision cycles against a portfolio. It is not safe for
// concurrent use; live trading serializes cycles through one goroutine.
type Core struct {
	cfg        Config
	data       DataSource
	pm         *portfolio.Manager
	rm         *risk.Manager
	classifier *regime.Classifier
	registry   *strategies.Registry
	scorer     *scoring.Scorer
	screen     fundamentals.Filter
	rec        Recorder
	log        zerolog.Logger

	lastRegime regime.Regime
	classified bool
}

func New(cfg Config, data DataSource, pm *portfolio.Manager, rm *risk.Manager,
	classifier *regime.Classifier, reg *strategies.Registry,
	screen fundamentals.Filter, rec Recorder, log zerolog.Logger) *Core {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Core{
		cfg:        cfg,
		data:       data,
		pm:         pm,
		rm:         rm,
		classifier: classifier,
		registry:   reg,
		scorer:     scoring.NewScorer(reg, log),
		screen:     screen,
		rec:        rec,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// Portfolio exposes the managed portfolio for reporting.
func (c *Core) Portfolio() *portfolio.Manager { return c.pm }

// Tag builds the idempotency key for one order: date, symbol and reason.
func Tag(date time.Time, sym market.Symbol, reason string) string {
	return fmt.Sprintf("%s:%s:%s", market.Day(date).Format("2006-01-02"), sym, reason)
}

// CycleResult summarizes one decision cycle.
type CycleResult struct {
	Date           time.Time
	Regime         regime.Regime
	Classification regime.Classification
	Candidates     []scoring.Composite // ranked; empty when the buy pass was gated
	Closed         []portfolio.Fill
	Opened         []portfolio.Fill
	Added          []portfolio.Fill
	Deferred       []market.Symbol // exits blocked by T+1
	Equity         decimal.Decimal
}
