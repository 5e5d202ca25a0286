// Package regime classifies each trading day into Bull, Bear or Range from
// market-wide index history, using only data at or before the decision date.
package regime

// Regime is the classified market condition. It gates which strategies are
// eligible on a given date.
type Regime int8

const (
	// Range is the default: fewest forced trades, mean-reversion strategies.
	Range Regime = iota
	Bull
	Bear
)

func (r Regime) String() string {
	switch r {
	case Bull:
		return "bull"
	case Bear:
		return "bear"
	default:
		return "range"
	}
}

// ParseRegime maps a stored string back to a Regime. Unknown input maps to
// Range, matching the classifier's conservative default.
func ParseRegime(s string) Regime {
	switch s {
	case "bull":
		return Bull
	case "bear":
		return Bear
	default:
		return Range
	}
}
