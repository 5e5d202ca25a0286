// Package strategies holds the 26 technical signal evaluators and their
// regime eligibility. Each strategy is a pure function of historical bars:
// given the same history it always produces the same score.
package strategies

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/regime"
)

// Action selects which side of a strategy is being scored.
type Action int8

const (
	ActionBuy Action = iota
	ActionSell
)

// Strategy is the shared capability every evaluator implements.
//
// Evaluate returns a strength in [0, 100] for the requested action and
// ok=false when the history is too short to evaluate (not an error; the
// strategy is simply excluded from that symbol's composite for the date).
type Strategy interface {
	Name() string
	Regimes() []regime.Regime
	Evaluate(h market.History, action Action) (score float64, ok bool)
}

// tech implements Strategy from a scoring closure plus a minimum bar count.
type tech struct {
	name    string
	regimes []regime.Regime
	minBars int
	eval    func(h market.History, action Action) float64
}

func (t *tech) Name() string             { return t.name }
func (t *tech) Regimes() []regime.Regime { return t.regimes }

func (t *tech) Evaluate(h market.History, action Action) (float64, bool) {
	if h.Len() < t.minBars {
		return 0, false
	}
	return clamp(t.eval(h, action)), true
}

// Registry maps strategy names to evaluators and indexes them by regime.
type Registry struct {
	byName map[string]Strategy
	names  []string
}

// NewRegistry builds a registry, rejecting duplicate names.
func NewRegistry(strats ...Strategy) (*Registry, error) {
	r := &Registry{byName: make(map[string]Strategy, len(strats))}
	for _, s := range strats {
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("strategy %q registered twice", s.Name())
		}
		r.byName[s.Name()] = s
		r.names = append(r.names, s.Name())
	}
	sort.Strings(r.names)
	return r, nil
}

// Library returns the full production registry: 14 bull, 6 bear and
// 6 range strategies.
func Library() *Registry {
	all := make([]Strategy, 0, 26)
	all = append(all, bullStrategies()...)
	all = append(all, bearStrategies()...)
	all = append(all, rangeStrategies()...)
	r, err := NewRegistry(all...)
	if err != nil {
		// Names are compile-time constants; a duplicate is a programming error.
		panic(err)
	}
	return r
}

func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns all registered names, ascending.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// ByRegime returns the strategies eligible under rg, name-ascending so that
// composite scoring iterates in a reproducible order.
func (r *Registry) ByRegime(rg regime.Regime) []Strategy {
	var out []Strategy
	for _, name := range r.names {
		s := r.byName[name]
		for _, sr := range s.Regimes() {
			if sr == rg {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// EligibleUnder reports whether the named strategy may hold positions in rg.
// Unknown names are never eligible.
func (r *Registry) EligibleUnder(name string, rg regime.Regime) bool {
	s, ok := r.byName[name]
	if !ok {
		return false
	}
	for _, sr := range s.Regimes() {
		if sr == rg {
			return true
		}
	}
	return false
}
