package regime

import (
	"math"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/equitrader/market"
)

// Classification is one day's regime call with its diagnostics.
type Classification struct {
	Regime     Regime
	Score      float64 // weighted total in [-1, 1]
	Confidence float64 // 0-100
	SubScores  map[string]float64
	VolumeCorr float64 // price/volume change correlation, diagnostic only
	Reason     string
}

const (
	maLong  = 120
	minBars = maLong + 10

	bullThreshold = 0.3
	bearThreshold = -0.3
)

// Sub-score weights. MA arrangement and price trend carry the most.
// Summed in slice order: float addition is not associative, so a fixed
// order keeps Score identical across runs.
var weights = []struct {
	name   string
	weight float64
}{
	{"ma", 0.25},
	{"macd", 0.20},
	{"rsi", 0.15},
	{"trend", 0.25},
	{"adx", 0.10},
	{"volatility", 0.05},
}

// Classifier derives the market regime from index bars. It holds no state
// between calls; identical input yields an identical Classification.
type Classifier struct {
	log zerolog.Logger
}

func NewClassifier(log zerolog.Logger) *Classifier {
	return &Classifier{log: log.With().Str("component", "regime").Logger()}
}

// Classify evaluates index history up to and including its last bar. With
// fewer than minBars bars it returns the Range default rather than guessing.
func (c *Classifier) Classify(index market.History) Classification {
	if index.Len() < minBars {
		c.log.Warn().
			Int("bars", index.Len()).
			Int("need", minBars).
			Msg("insufficient index history, defaulting to range")
		return Classification{
			Regime:     Range,
			Confidence: 50,
			SubScores:  map[string]float64{},
			Reason:     "insufficient history",
		}
	}

	closes := index.Closes()
	highs := index.Highs()
	lows := index.Lows()

	scores := map[string]float64{
		"ma":         scoreMAArrangement(closes),
		"macd":       scoreMACD(closes),
		"rsi":        scoreRSI(closes),
		"trend":      scorePriceTrend(index),
		"adx":        scoreADX(highs, lows, closes),
		"volatility": scoreVolatility(closes),
	}

	total := 0.0
	for _, w := range weights {
		total += scores[w.name] * w.weight
	}

	cl := Classification{
		Score:      total,
		SubScores:  scores,
		VolumeCorr: volumeCorrelation(index),
	}
	switch {
	case total >= bullThreshold:
		cl.Regime = Bull
		cl.Confidence = math.Min(100, 50+total*100)
		cl.Reason = "trend score above bull threshold"
	case total <= bearThreshold:
		cl.Regime = Bear
		cl.Confidence = math.Min(100, 50+math.Abs(total)*100)
		cl.Reason = "trend score below bear threshold"
	default:
		cl.Regime = Range
		cl.Confidence = math.Max(30, 80-math.Abs(total)*100)
		cl.Reason = "trend score inside neutral band"
	}

	c.log.Debug().
		Str("regime", cl.Regime.String()).
		Float64("score", cl.Score).
		Float64("confidence", cl.Confidence).
		Msg("classified")
	return cl
}

// scoreMAArrangement scores the 20/60/120 SMA stack: +1 fully bullish
// arrangement with 10% spread, -1 fully bearish.
func scoreMAArrangement(closes []float64) float64 {
	ma20 := last(talib.Sma(closes, 20))
	ma60 := last(talib.Sma(closes, 60))
	ma120 := last(talib.Sma(closes, maLong))
	if ma120 == 0 {
		return 0
	}

	switch {
	case ma20 > ma60 && ma60 > ma120:
		dev := (ma20 - ma120) / ma120 * 100
		return math.Min(1, dev/10)
	case ma20 < ma60 && ma60 < ma120:
		dev := (ma120 - ma20) / ma120 * 100
		return -math.Min(1, dev/10)
	case ma20 > ma60:
		return 0.2
	case ma20 < ma60:
		return -0.2
	default:
		return 0
	}
}

// scoreMACD rewards a fresh golden cross (+0.5) or punishes a death cross
// (-0.5); otherwise scores the zero-axis side.
func scoreMACD(closes []float64) float64 {
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	n := len(hist)
	if n < 2 {
		return 0
	}
	curr, prev := hist[n-1], hist[n-2]
	switch {
	case curr > 0 && prev <= 0:
		return 0.5
	case curr < 0 && prev >= 0:
		return -0.5
	case macd[n-1] > 0 && signal[n-1] > 0:
		return 0.3
	case macd[n-1] < 0 && signal[n-1] < 0:
		return -0.3
	default:
		return 0
	}
}

func scoreRSI(closes []float64) float64 {
	rsi := last(talib.Rsi(closes, 14))
	switch {
	case rsi <= 0 || math.IsNaN(rsi):
		return 0
	case rsi < 30:
		return 0.3 // oversold; contrarian positive
	case rsi > 70:
		return -0.3
	case rsi > 55:
		return 0.2
	case rsi < 45:
		return -0.2
	default:
		return 0
	}
}

// scorePriceTrend uses the 20-day change as the primary signal, falling back
// to multi-horizon agreement across 5/10/20/60 days.
func scorePriceTrend(index market.History) float64 {
	changes := map[int]float64{}
	for _, n := range []int{5, 10, 20, 60} {
		if chg, ok := index.ChangeOver(n); ok {
			changes[n] = chg * 100
		}
	}
	if len(changes) == 0 {
		return 0
	}

	chg20 := changes[20]
	if chg20 > 10 {
		return math.Min(1, chg20/15)
	}
	if chg20 < -10 {
		return math.Max(-1, chg20/15)
	}

	positive, negative := 0, 0
	for _, c := range changes {
		if c > 0 {
			positive++
		} else if c < 0 {
			negative++
		}
	}
	if positive >= 3 {
		return 0.4
	}
	if negative >= 3 {
		return -0.4
	}
	return 0
}

func scoreADX(highs, lows, closes []float64) float64 {
	adx := last(talib.Adx(highs, lows, closes, 14))
	switch {
	case adx <= 0 || math.IsNaN(adx):
		return 0
	case adx > 25:
		return 0.2
	case adx < 20:
		return -0.1
	default:
		return 0
	}
}

// scoreVolatility uses Bollinger band width as percent of the middle band.
func scoreVolatility(closes []float64) float64 {
	upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	n := len(middle)
	if n == 0 || middle[n-1] == 0 {
		return 0
	}
	width := (upper[n-1] - lower[n-1]) / middle[n-1] * 100
	switch {
	case width > 10:
		return 0.1
	case width < 5 && width > 0:
		return -0.1
	default:
		return 0
	}
}

// volumeCorrelation is the correlation between daily price and volume
// changes over the final 20 bars. Logged as a diagnostic; not weighted into
// the total because volume data quality varies across index sources.
func volumeCorrelation(index market.History) float64 {
	const window = 20
	if index.Len() < window+1 {
		return 0
	}
	bars := index.Bars[index.Len()-window-1:]
	priceChg := make([]float64, 0, window)
	volChg := make([]float64, 0, window)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close == 0 || bars[i-1].Volume == 0 {
			return 0
		}
		priceChg = append(priceChg, bars[i].Close/bars[i-1].Close-1)
		volChg = append(volChg, bars[i].Volume/bars[i-1].Volume-1)
	}
	corr := stat.Correlation(priceChg, volChg, nil)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
