package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/portfolio"
	"github.com/rustyeddy/equitrader/regime"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/rustyeddy/equitrader/scoring"
	"github.com/rustyeddy/equitrader/strategies"
)

// RunCycle executes one full decision cycle for the date:
//
//  1. reclassify the regime from index bars before the date
//  2. risk-check every open position, closing exits that are due
//  3. stop if utilization already sits at the gate
//  4. open new positions from the ranked candidates
//  5. add layers to positions that moved past the add-on trigger
//
// Symbols are always visited in ascending order so identical inputs
// replay to identical fills.
func (c *Core) RunCycle(ctx context.Context, date time.Time) (CycleResult, error) {
	date = market.Day(date)
	res := CycleResult{Date: date}

	index, err := c.data.IndexHistory(ctx, date)
	if err != nil {
		return res, fmt.Errorf("index history: %w", err)
	}
	cls := c.classifier.Classify(index)
	res.Regime = cls.Regime
	res.Classification = cls
	if c.classified && cls.Regime != c.lastRegime {
		c.log.Info().
			Str("from", c.lastRegime.String()).
			Str("to", cls.Regime.String()).
			Time("date", date).
			Msg("regime transition")
	}
	c.lastRegime = cls.Regime
	c.classified = true

	if err := c.riskPass(ctx, date, cls.Regime, &res); err != nil {
		return res, err
	}
	if err := c.buyPass(ctx, date, cls.Regime, &res); err != nil {
		return res, err
	}
	if err := c.addOnPass(ctx, date, cls.Regime, &res); err != nil {
		return res, err
	}

	res.Equity = c.pm.TotalEquity()
	if err := c.rec.RecordEquity(ctx, date, res.Equity, c.pm.Cash()); err != nil {
		return res, fmt.Errorf("record equity: %w", err)
	}
	c.log.Info().
		Time("date", date).
		Str("regime", cls.Regime.String()).
		Int("closed", len(res.Closed)).
		Int("opened", len(res.Opened)).
		Int("added", len(res.Added)).
		Str("equity", res.Equity.StringFixed(2)).
		Msg("cycle complete")
	return res, nil
}

// riskPass evaluates exits for every position. Positions whose strategy
// is not allowed under today's regime, or whose fundamentals no longer
// pass the screen, are treated as regime exits.
func (c *Core) riskPass(ctx context.Context, date time.Time, rg regime.Regime, res *CycleResult) error {
	for _, sym := range c.pm.Symbols() {
		pos, _ := c.pm.Position(sym)

		quote, ok, err := c.data.TriggerQuote(ctx, sym, date)
		if err != nil {
			return fmt.Errorf("trigger quote %s: %w", sym, err)
		}
		if !ok {
			// Suspended today: nothing to mark, nothing can trade.
			continue
		}
		if err := c.pm.MarkPrice(sym, quote.Close); err != nil {
			return err
		}

		sig := risk.Signals{
			RegimeEligible: c.registry.EligibleUnder(pos.StrategyID, rg),
		}
		if sig.RegimeEligible {
			eligible, err := c.fundamentallyEligible(ctx, sym, date)
			if err != nil {
				return err
			}
			sig.RegimeEligible = eligible
		}
		if sig.RegimeEligible {
			h, err := c.data.History(ctx, sym, date)
			if err != nil {
				return fmt.Errorf("history %s: %w", sym, err)
			}
			sig.ExitScore, sig.ExitScoreOK = c.scorer.ExitStrength(pos.StrategyID, h)
		}

		v := c.rm.Evaluate(pos, quote.Range, quote.Close, sig, date)
		switch {
		case v.Deferred:
			res.Deferred = append(res.Deferred, sym)
		case v.Close:
			undo := c.pm.Snapshot()
			fill, err := c.pm.Close(sym, date, v.Price, v.Reason)
			if err != nil {
				return fmt.Errorf("close %s: %w", sym, err)
			}
			if err := c.rec.RecordFill(ctx, fill, Tag(date, sym, string(v.Reason))); err != nil {
				c.rollback(undo)
				return fmt.Errorf("record close %s: %w", sym, err)
			}
			res.Closed = append(res.Closed, fill)
		}
	}
	return nil
}

// buyPass screens the active universe, scores the survivors under the
// regime and fills open slots best-first, one target-weight slice each.
func (c *Core) buyPass(ctx context.Context, date time.Time, rg regime.Regime, res *CycleResult) error {
	if c.pm.Utilization().GreaterThanOrEqual(c.cfg.UtilizationGate) {
		c.log.Debug().Time("date", date).Msg("utilization gate holds, no buys")
		return nil
	}
	if c.pm.OpenSlots() == 0 {
		return nil
	}

	universe, err := c.data.ActiveUniverse(ctx, date)
	if err != nil {
		return fmt.Errorf("active universe: %w", err)
	}

	closedToday := make(map[market.Symbol]bool, len(res.Closed))
	for _, f := range res.Closed {
		closedToday[f.Symbol] = true
	}

	var composites []scoring.Composite
	histories := make(map[market.Symbol]market.History, len(universe))
	for _, sym := range market.SortSymbols(universe) {
		if _, held := c.pm.Position(sym); held {
			continue
		}
		if closedToday[sym] {
			// No same-cycle re-entry after an exit.
			continue
		}
		eligible, err := c.fundamentallyEligible(ctx, sym, date)
		if err != nil {
			return err
		}
		if !eligible {
			continue
		}
		h, err := c.data.History(ctx, sym, date)
		if err != nil {
			return fmt.Errorf("history %s: %w", sym, err)
		}
		histories[sym] = h
		composites = append(composites, c.scorer.Score(h, rg))
	}

	target := c.pm.TotalEquity().Mul(c.cfg.TargetWeight)
	res.Candidates = scoring.Rank(composites)
	for _, cand := range res.Candidates {
		if cand.Score < c.cfg.BuyThreshold {
			break // ranked descending, nothing below clears the bar
		}
		if c.pm.OpenSlots() == 0 {
			break
		}
		if c.pm.Utilization().GreaterThanOrEqual(c.cfg.UtilizationGate) {
			break
		}
		price, traded, err := c.data.DecisionPrice(ctx, cand.Symbol, date)
		if err != nil {
			return fmt.Errorf("decision price %s: %w", cand.Symbol, err)
		}
		if !traded {
			continue
		}
		strategyID := c.leadStrategy(cand, histories[cand.Symbol])
		undo := c.pm.Snapshot()
		fill, err := c.pm.Open(cand.Symbol, date, price, target, strategyID)
		if err != nil {
			if recoverableOpenErr(err) {
				c.log.Debug().Err(err).Str("symbol", string(cand.Symbol)).Msg("skipping entry")
				continue
			}
			return fmt.Errorf("open %s: %w", cand.Symbol, err)
		}
		if err := c.rec.RecordFill(ctx, fill, Tag(date, cand.Symbol, "open")); err != nil {
			c.rollback(undo)
			return fmt.Errorf("record open %s: %w", cand.Symbol, err)
		}
		res.Opened = append(res.Opened, fill)
	}
	return nil
}

// leadStrategy picks the position's owning strategy: the strongest
// contributor to the composite, name-ascending on ties.
func (c *Core) leadStrategy(cand scoring.Composite, h market.History) string {
	best := ""
	bestScore := -1.0
	for _, name := range cand.Contributing {
		s, ok := c.registry.Get(name)
		if !ok {
			continue
		}
		score, ok := s.Evaluate(h, strategies.ActionBuy)
		if !ok {
			continue
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	return best
}

// addOnPass adds a half-size layer where the position moved past the
// trigger: a gain in bull markets (pressing a winner), a drawdown in bear
// and range markets (averaging in).
func (c *Core) addOnPass(ctx context.Context, date time.Time, rg regime.Regime, res *CycleResult) error {
	trigger := c.cfg.AddOnTriggerPct
	for _, sym := range c.pm.Symbols() {
		pos, _ := c.pm.Position(sym)
		ret := pos.Return()

		var due bool
		if rg == regime.Bull {
			due = ret.GreaterThanOrEqual(trigger)
		} else {
			due = ret.LessThanOrEqual(trigger.Neg())
		}
		if !due {
			continue
		}

		price, traded, err := c.data.DecisionPrice(ctx, sym, date)
		if err != nil {
			return fmt.Errorf("decision price %s: %w", sym, err)
		}
		if !traded {
			continue
		}
		undo := c.pm.Snapshot()
		fill, err := c.pm.AddLayer(sym, date, price)
		if err != nil {
			if recoverableAddErr(err) {
				continue
			}
			return fmt.Errorf("add %s: %w", sym, err)
		}
		tag := Tag(date, sym, fmt.Sprintf("add_%d", fill.Layer))
		if err := c.rec.RecordFill(ctx, fill, tag); err != nil {
			c.rollback(undo)
			return fmt.Errorf("record add %s: %w", sym, err)
		}
		res.Added = append(res.Added, fill)
	}
	return nil
}

// fundamentallyEligible screens one symbol on the date. A missing
// snapshot fails the screen; liquidity uses the trailing 60-day average
// turnover.
func (c *Core) fundamentallyEligible(ctx context.Context, sym market.Symbol, date time.Time) (bool, error) {
	snap, err := c.data.Fundamentals(ctx, sym, date)
	if err != nil {
		return false, fmt.Errorf("fundamentals %s: %w", sym, err)
	}
	h, err := c.data.History(ctx, sym, date)
	if err != nil {
		return false, fmt.Errorf("history %s: %w", sym, err)
	}
	avg, ok := h.AvgAmount(60)
	if !ok {
		return false, nil
	}
	return c.screen.Eligible(snap, decimal.NewFromFloat(avg)), nil
}

// rollback restores the portfolio to its state before a mutation whose
// order never made it through the recorder, so a rejected order leaves
// positions and cash untouched.
func (c *Core) rollback(undo portfolio.Snapshot) {
	if err := c.pm.Restore(undo); err != nil {
		c.log.Error().Err(err).Msg("portfolio rollback failed")
	}
}

func recoverableOpenErr(err error) bool {
	return errors.Is(err, portfolio.ErrZeroQuantity) ||
		errors.Is(err, portfolio.ErrInsufficientCash) ||
		errors.Is(err, portfolio.ErrWeightExceeded)
}

func recoverableAddErr(err error) bool {
	return errors.Is(err, portfolio.ErrMaxLayers) ||
		errors.Is(err, portfolio.ErrZeroQuantity) ||
		errors.Is(err, portfolio.ErrInsufficientCash) ||
		errors.Is(err, portfolio.ErrWeightExceeded)
}
