// Package risk decides when open positions must be exited. It evaluates
// each position against the day's trigger range and the current market
// regime, in a fixed priority: take-profit, stop-loss, regime exit, then
// strategy sell signal.
package risk

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/portfolio"
)

// TriggerRange is the price band traded during the evaluation window.
// In a backtest this is the daily bar's low and high.
type TriggerRange struct {
	Low  decimal.Decimal
	High decimal.Decimal
}

// Limits holds the exit thresholds.
type Limits struct {
	TakeProfitPct decimal.Decimal // gain over entry that locks in profit
	StopLossPct   decimal.Decimal // loss under entry that cuts the position
	ExitThreshold float64         // minimum sell-side strategy score
}

// DefaultLimits: +20% take-profit, -10% stop-loss, sell score 70.
func DefaultLimits() Limits {
	return Limits{
		TakeProfitPct: decimal.NewFromFloat(0.20),
		StopLossPct:   decimal.NewFromFloat(0.10),
		ExitThreshold: 70,
	}
}

// Verdict is the outcome of evaluating one position.
//
// When Close is set the position must be sold at Price for Reason. When
// Deferred is set an exit condition fired but T+1 settlement blocks the
// sale today; the same condition is re-evaluated next cycle.
type Verdict struct {
	Close    bool
	Deferred bool
	Reason   portfolio.CloseReason
	Price    decimal.Decimal
}

// Signals carries the non-price exit inputs for one position.
type Signals struct {
	RegimeEligible bool    // strategy still allowed under today's regime
	ExitScore      float64 // sell-side strength of the entry strategy
	ExitScoreOK    bool    // false when history was too short to score
}

// Manager applies Limits to positions.
type Manager struct {
	limits Limits
	log    zerolog.Logger
}

func NewManager(limits Limits, log zerolog.Logger) *Manager {
	return &Manager{limits: limits, log: log.With().Str("component", "risk").Logger()}
}

func (m *Manager) Limits() Limits { return m.limits }

// TakeProfitPrice is the exit level for a position entered at entry.
func (m *Manager) TakeProfitPrice(entry decimal.Decimal) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(1).Add(m.limits.TakeProfitPct))
}

// StopLossPrice is the cut level for a position entered at entry.
func (m *Manager) StopLossPrice(entry decimal.Decimal) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(1).Sub(m.limits.StopLossPct))
}

// Evaluate checks one position against the day's trigger range, the close
// price and the signal inputs, on today's date. Exactly one reason can
// fire; higher-priority reasons shadow lower ones. An exit blocked by T+1
// comes back with Deferred set and Close unset.
func (m *Manager) Evaluate(pos *portfolio.Position, rng TriggerRange, closePrice decimal.Decimal, sig Signals, today time.Time) Verdict {
	v := m.pick(pos, rng, closePrice, sig)
	if v.Reason == "" {
		return Verdict{}
	}
	if !pos.Sellable(today) {
		m.log.Debug().
			Str("symbol", string(pos.Symbol)).
			Str("reason", string(v.Reason)).
			Msg("exit deferred by T+1")
		return Verdict{Deferred: true, Reason: v.Reason, Price: v.Price}
	}
	v.Close = true
	return v
}

func (m *Manager) pick(pos *portfolio.Position, rng TriggerRange, closePrice decimal.Decimal, sig Signals) Verdict {
	tp := m.TakeProfitPrice(pos.EntryPrice)
	if rng.High.GreaterThanOrEqual(tp) {
		return Verdict{Reason: portfolio.TakeProfit, Price: tp}
	}
	sl := m.StopLossPrice(pos.EntryPrice)
	if rng.Low.LessThanOrEqual(sl) {
		return Verdict{Reason: portfolio.StopLoss, Price: sl}
	}
	if !sig.RegimeEligible {
		return Verdict{Reason: portfolio.RegimeExit, Price: closePrice}
	}
	if sig.ExitScoreOK && sig.ExitScore >= m.limits.ExitThreshold {
		return Verdict{Reason: portfolio.StrategySignal, Price: closePrice}
	}
	return Verdict{}
}
