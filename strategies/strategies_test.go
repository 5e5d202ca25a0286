package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/regime"
)

// histFromCloses builds a history where each bar's high/low straddle the
// close and volume follows the supplied series (or a constant).
func histFromCloses(t *testing.T, closes []float64, vols []float64) market.History {
	t.Helper()
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]market.DailyBar, len(closes))
	for i, c := range closes {
		v := 1_000_000.0
		if vols != nil {
			v = vols[i]
		}
		bars[i] = market.DailyBar{
			Symbol: "600000",
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: v,
			Amount: c * v,
		}
	}
	h, err := market.NewHistory("600000", bars)
	require.NoError(t, err)
	return h
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestLibraryComposition(t *testing.T) {
	t.Parallel()

	lib := Library()
	assert.Len(t, lib.Names(), 26)
	assert.Len(t, lib.ByRegime(regime.Bull), 14)
	assert.Len(t, lib.ByRegime(regime.Bear), 6)
	assert.Len(t, lib.ByRegime(regime.Range), 6)
}

func TestByRegimeOrderedByName(t *testing.T) {
	t.Parallel()

	lib := Library()
	for _, rg := range []regime.Regime{regime.Bull, regime.Bear, regime.Range} {
		strats := lib.ByRegime(rg)
		for i := 1; i < len(strats); i++ {
			assert.Less(t, strats[i-1].Name(), strats[i].Name())
		}
	}
}

func TestEligibleUnder(t *testing.T) {
	t.Parallel()

	lib := Library()
	assert.True(t, lib.EligibleUnder("macd", regime.Bull))
	assert.False(t, lib.EligibleUnder("macd", regime.Bear))
	assert.True(t, lib.EligibleUnder("williams_r", regime.Bear))
	assert.True(t, lib.EligibleUnder("bollinger", regime.Range))
	assert.False(t, lib.EligibleUnder("no_such_strategy", regime.Bull))
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	s := &tech{name: "dup", regimes: []regime.Regime{regime.Bull}, minBars: 1,
		eval: func(market.History, Action) float64 { return 0 }}
	_, err := NewRegistry(s, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dup")
}

func TestShortHistoryNotEvaluated(t *testing.T) {
	t.Parallel()

	h := histFromCloses(t, ramp(5, 10, 0.1), nil)
	for _, name := range Library().Names() {
		s, ok := Library().Get(name)
		require.True(t, ok)
		_, evaluated := s.Evaluate(h, ActionBuy)
		assert.False(t, evaluated, "strategy %s should refuse 5 bars", name)
	}
}

func TestScoresStayInRange(t *testing.T) {
	t.Parallel()

	histories := []market.History{
		histFromCloses(t, ramp(80, 10, 0.15), nil),   // uptrend
		histFromCloses(t, ramp(80, 30, -0.25), nil),  // downtrend
		histFromCloses(t, flat(80, 20), nil),         // flat
	}
	lib := Library()
	for _, h := range histories {
		for _, name := range lib.Names() {
			s, _ := lib.Get(name)
			for _, action := range []Action{ActionBuy, ActionSell} {
				score, ok := s.Evaluate(h, action)
				if !ok {
					continue
				}
				assert.GreaterOrEqual(t, score, 0.0, "%s", name)
				assert.LessOrEqual(t, score, 100.0, "%s", name)
			}
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	t.Parallel()

	h := histFromCloses(t, ramp(80, 10, 0.15), nil)
	lib := Library()
	for _, name := range lib.Names() {
		s, _ := lib.Get(name)
		a, okA := s.Evaluate(h, ActionBuy)
		b, okB := s.Evaluate(h, ActionBuy)
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b, "%s must be pure", name)
	}
}

func TestVolumeBreakout(t *testing.T) {
	t.Parallel()

	closes := ramp(30, 10, 0.05)
	quiet := flat(30, 1_000_000)
	h := histFromCloses(t, closes, quiet)
	s, _ := Library().Get("volume_breakout")

	score, ok := s.Evaluate(h, ActionBuy)
	require.True(t, ok)
	assert.Zero(t, score, "no spike, no signal")

	spiked := flat(30, 1_000_000)
	spiked[29] = 2_500_000 // well past 1.5x the 20-day average
	h = histFromCloses(t, closes, spiked)
	score, ok = s.Evaluate(h, ActionBuy)
	require.True(t, ok)
	assert.Greater(t, score, 60.0)
}

func TestMACrossStrengthTiers(t *testing.T) {
	t.Parallel()

	s, _ := Library().Get("ma_cross_strength")

	up, ok := s.Evaluate(histFromCloses(t, ramp(40, 10, 0.2), nil), ActionBuy)
	require.True(t, ok)
	assert.Equal(t, 100.0, up, "fully stacked MAs")

	down, ok := s.Evaluate(histFromCloses(t, ramp(40, 30, -0.2), nil), ActionBuy)
	require.True(t, ok)
	assert.Equal(t, 40.0, down)
}

func TestRSIContrarianBuysWeakness(t *testing.T) {
	t.Parallel()

	s, _ := Library().Get("rsi_contrarian")

	weak, ok := s.Evaluate(histFromCloses(t, ramp(40, 50, -0.5), nil), ActionBuy)
	require.True(t, ok)
	strong, ok2 := s.Evaluate(histFromCloses(t, ramp(40, 10, 0.5), nil), ActionBuy)
	require.True(t, ok2)
	assert.Greater(t, weak, strong, "deeper selloff scores higher for a contrarian buy")
}

func TestWilliamsRWashout(t *testing.T) {
	t.Parallel()

	s, _ := Library().Get("williams_r")

	// Relentless decline pins %R near -100.
	score, ok := s.Evaluate(histFromCloses(t, ramp(40, 100, -1.5), nil), ActionBuy)
	require.True(t, ok)
	assert.Greater(t, score, 0.0)

	// Relentless rally pins %R near 0, worthless as a bear-market buy.
	score, ok = s.Evaluate(histFromCloses(t, ramp(40, 10, 1.5), nil), ActionBuy)
	require.True(t, ok)
	assert.Zero(t, score)
}

func TestBollingerMeanReversion(t *testing.T) {
	t.Parallel()

	s, _ := Library().Get("bollinger")

	// Flat series then a sharp drop through the lower band.
	closes := flat(40, 20)
	closes[39] = 17
	score, ok := s.Evaluate(histFromCloses(t, closes, nil), ActionBuy)
	require.True(t, ok)
	assert.Greater(t, score, 50.0)

	// Sharp pop through the upper band scores the sell side.
	closes = flat(40, 20)
	closes[39] = 23
	score, ok = s.Evaluate(histFromCloses(t, closes, nil), ActionSell)
	require.True(t, ok)
	assert.Greater(t, score, 50.0)
}

func TestTrendFilterRequiresRisingMAs(t *testing.T) {
	t.Parallel()

	s, _ := Library().Get("trend_filter")

	up, ok := s.Evaluate(histFromCloses(t, ramp(80, 10, 0.2), nil), ActionBuy)
	require.True(t, ok)
	assert.Greater(t, up, 50.0)

	down, ok := s.Evaluate(histFromCloses(t, ramp(80, 40, -0.2), nil), ActionBuy)
	require.True(t, ok)
	assert.Equal(t, 20.0, down)
}
