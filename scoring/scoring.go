// Package scoring turns per-strategy signal strengths into a single
// composite per symbol and ranks candidates for entry.
package scoring

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/regime"
	"github.com/rustyeddy/equitrader/strategies"
)

// BuyThreshold is the minimum composite required to open a position.
const BuyThreshold = 40.0

// Composite is one symbol's aggregated buy signal for a date.
type Composite struct {
	Symbol       market.Symbol
	Score        float64
	Contributing []string // strategies that fired, name-ascending
}

// Scorer aggregates the regime-eligible strategies over a symbol's history.
type Scorer struct {
	reg *strategies.Registry
	log zerolog.Logger
}

func NewScorer(reg *strategies.Registry, log zerolog.Logger) *Scorer {
	return &Scorer{reg: reg, log: log.With().Str("component", "scorer").Logger()}
}

// Score evaluates every strategy eligible under rg against h and folds the
// results into one composite in [0, 100]. Each firing strategy adds
// 2*strength/eligible, so an extra firing strategy can only raise the
// composite, saturating at 100. Strategies that refuse the history (too
// short) are skipped without contributing.
func (s *Scorer) Score(h market.History, rg regime.Regime) Composite {
	eligible := s.reg.ByRegime(rg)
	c := Composite{Symbol: h.Symbol}
	if len(eligible) == 0 {
		return c
	}

	sum := 0.0
	for _, strat := range eligible {
		strength, ok := strat.Evaluate(h, strategies.ActionBuy)
		if !ok || strength <= 0 {
			continue
		}
		sum += strength * 2 / float64(len(eligible))
		c.Contributing = append(c.Contributing, strat.Name())
	}
	if sum > 100 {
		sum = 100
	}
	c.Score = sum

	s.log.Debug().
		Str("symbol", string(h.Symbol)).
		Str("regime", rg.String()).
		Float64("score", c.Score).
		Int("fired", len(c.Contributing)).
		Msg("scored symbol")
	return c
}

// ExitStrength scores the sell side of one named strategy against h.
// Returns 0, false when the strategy is unknown or the history too short.
func (s *Scorer) ExitStrength(name string, h market.History) (float64, bool) {
	strat, ok := s.reg.Get(name)
	if !ok {
		return 0, false
	}
	return strat.Evaluate(h, strategies.ActionSell)
}

// Rank orders composites best-first: score descending, symbol ascending on
// ties so identical inputs always produce identical orderings. Symbols
// where nothing fired are dropped.
func Rank(in []Composite) []Composite {
	out := make([]Composite, 0, len(in))
	for _, c := range in {
		if len(c.Contributing) == 0 {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
