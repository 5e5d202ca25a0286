package scoring

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/regime"
	"github.com/rustyeddy/equitrader/strategies"
)

type fixedStrategy struct {
	name     string
	regimes  []regime.Regime
	strength float64
	ok       bool
}

func (f *fixedStrategy) Name() string             { return f.name }
func (f *fixedStrategy) Regimes() []regime.Regime { return f.regimes }
func (f *fixedStrategy) Evaluate(market.History, strategies.Action) (float64, bool) {
	return f.strength, f.ok
}

func fixed(name string, strength float64) *fixedStrategy {
	return &fixedStrategy{
		name: name, regimes: []regime.Regime{regime.Bull},
		strength: strength, ok: true,
	}
}

func testHistory(t *testing.T, n int) market.History {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.DailyBar, n)
	for i := range bars {
		c := 10 + float64(i)*0.1
		bars[i] = market.DailyBar{
			Symbol: "600519", Date: start.AddDate(0, 0, i),
			Open: c, High: c * 1.01, Low: c * 0.99, Close: c,
			Volume: 1e6, Amount: c * 1e6,
		}
	}
	h, err := market.NewHistory("600519", bars)
	require.NoError(t, err)
	return h
}

func newScorer(t *testing.T, strats ...strategies.Strategy) *Scorer {
	t.Helper()
	reg, err := strategies.NewRegistry(strats...)
	require.NoError(t, err)
	return NewScorer(reg, zerolog.Nop())
}

func TestScoreAveragesFiredStrategies(t *testing.T) {
	t.Parallel()

	// Two eligible, both fire at 25: each adds 25*2/2 = 25.
	s := newScorer(t, fixed("a", 25), fixed("b", 25))
	c := s.Score(testHistory(t, 30), regime.Bull)
	assert.InDelta(t, 50.0, c.Score, 1e-9)
	assert.Equal(t, []string{"a", "b"}, c.Contributing)
}

func TestScoreMonotoneInFiredStrategies(t *testing.T) {
	t.Parallel()

	h := testHistory(t, 30)

	// b silent.
	quiet := newScorer(t, fixed("a", 60), &fixedStrategy{
		name: "b", regimes: []regime.Regime{regime.Bull}, strength: 0, ok: true,
	})
	base := quiet.Score(h, regime.Bull)

	// Same registry size, b now fires: composite must not drop.
	loud := newScorer(t, fixed("a", 60), fixed("b", 10))
	bumped := loud.Score(h, regime.Bull)

	assert.GreaterOrEqual(t, bumped.Score, base.Score)
}

func TestScoreSaturatesAt100(t *testing.T) {
	t.Parallel()

	s := newScorer(t, fixed("a", 90), fixed("b", 90), fixed("c", 90))
	c := s.Score(testHistory(t, 30), regime.Bull)
	assert.Equal(t, 100.0, c.Score)
}

func TestScoreSkipsShortHistories(t *testing.T) {
	t.Parallel()

	refusing := &fixedStrategy{name: "short", regimes: []regime.Regime{regime.Bull}, ok: false}
	s := newScorer(t, fixed("a", 40), refusing)
	c := s.Score(testHistory(t, 30), regime.Bull)
	assert.Equal(t, []string{"a"}, c.Contributing)
	// Divisor still counts both eligible strategies.
	assert.InDelta(t, 40.0, c.Score, 1e-9)
}

func TestScoreNoEligibleStrategies(t *testing.T) {
	t.Parallel()

	s := newScorer(t, fixed("a", 80)) // bull only
	c := s.Score(testHistory(t, 30), regime.Bear)
	assert.Zero(t, c.Score)
	assert.Empty(t, c.Contributing)
}

func TestRankOrdersDeterministically(t *testing.T) {
	t.Parallel()

	in := []Composite{
		{Symbol: "600030", Score: 55, Contributing: []string{"a"}},
		{Symbol: "600519", Score: 70, Contributing: []string{"a"}},
		{Symbol: "000001", Score: 55, Contributing: []string{"b"}},
		{Symbol: "300750", Score: 90, Contributing: nil}, // nothing fired
	}
	ranked := Rank(in)
	require.Len(t, ranked, 3)
	assert.Equal(t, market.Symbol("600519"), ranked[0].Symbol)
	// Tie at 55 breaks by ascending symbol.
	assert.Equal(t, market.Symbol("000001"), ranked[1].Symbol)
	assert.Equal(t, market.Symbol("600030"), ranked[2].Symbol)
}

func TestExitStrengthUnknownStrategy(t *testing.T) {
	t.Parallel()

	s := newScorer(t, fixed("a", 10))
	_, ok := s.ExitStrength("missing", testHistory(t, 30))
	assert.False(t, ok)
}
