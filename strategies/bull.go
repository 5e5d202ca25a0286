package strategies

import (
	"math"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/regime"
)

// The 14 bull-market strategies: breakout and trend-following setups that
// only make sense while the index is in an uptrend.
func bullStrategies() []Strategy {
	bull := []regime.Regime{regime.Bull}
	return []Strategy{
		&tech{name: "volume_breakout", regimes: bull, minBars: 21, eval: evalVolumeBreakout},
		&tech{name: "macd_volume", regimes: bull, minBars: 40, eval: evalMACDVolume},
		&tech{name: "macd", regimes: bull, minBars: 40, eval: evalMACD},
		&tech{name: "breakout_high", regimes: bull, minBars: 21, eval: evalBreakoutHigh},
		&tech{name: "ma_divergence", regimes: bull, minBars: 21, eval: evalMADivergence},
		&tech{name: "volume_price_rise", regimes: bull, minBars: 21, eval: evalVolumePriceRise},
		&tech{name: "rsi_trend", regimes: bull, minBars: 20, eval: evalRSITrend},
		&tech{name: "trend_filter", regimes: bull, minBars: 61, eval: evalTrendFilter},
		&tech{name: "ma_cross", regimes: bull, minBars: 21, eval: evalMACross},
		&tech{name: "ma_cross_strength", regimes: bull, minBars: 21, eval: evalMACrossStrength},
		&tech{name: "close_above_ma", regimes: bull, minBars: 21, eval: evalCloseAboveMA},
		&tech{name: "volume_ma", regimes: bull, minBars: 21, eval: evalVolumeMA},
		&tech{name: "breakout_confirm", regimes: bull, minBars: 22, eval: evalBreakoutConfirm},
		&tech{name: "platform_breakout", regimes: bull, minBars: 40, eval: evalPlatformBreakout},
	}
}

// Volume spike over the 20-day average: 1.5x is the floor, 2.5x scores 100.
func evalVolumeBreakout(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	vols := h.Volumes()
	volMA := smaLast(vols, 20)
	cur := last(vols)
	if volMA <= 0 || cur <= volMA*1.5 {
		return 0
	}
	return (cur/volMA-1.5)*40 + 60
}

// MACD momentum confirmed by above-average volume; each half capped at 50.
func evalMACDVolume(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	hist, _ := macdHist(h.Closes())
	vols := h.Volumes()
	volMA := smaLast(vols, 20)
	cur := last(vols)

	macdScore := 0.0
	if hist > 0 {
		macdScore = cap50(hist*200 + 50)
	}
	volScore := 0.0
	if volMA > 0 && cur > volMA {
		volScore = cap50((cur/volMA - 1) * 50)
	}
	return macdScore + volScore
}

func evalMACD(h market.History, action Action) float64 {
	hist, _ := macdHist(h.Closes())
	if action == ActionBuy {
		if hist <= 0 {
			return 0
		}
		return hist*200 + 50
	}
	if hist >= 0 {
		return 30
	}
	return -hist*200 + 50
}

// Close pushing through the 20-day high.
func evalBreakoutHigh(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	high20 := rollingMax(h.Highs(), 20)
	if high20 <= 0 {
		return 0
	}
	c := last(h.Closes())
	return (c/high20-1)*1000 + 50
}

// MA5 > MA10 > MA20 with the spread widening.
func evalMADivergence(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	closes := h.Closes()
	ma5, ma10, ma20 := smaLast(closes, 5), smaLast(closes, 10), smaLast(closes, 20)
	if !(ma5 > ma10 && ma10 > ma20) || ma20 <= 0 {
		return 30
	}
	spread := (ma5 - ma20) / ma20
	return spread*500 + 50
}

// Price up over the last week with volume expanding.
func evalVolumePriceRise(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	change := changePct(h.Closes(), 4)
	vols := h.Volumes()
	volMA5, volMA20 := smaLast(vols, 5), smaLast(vols, 20)
	volRatio := volMA5 / (volMA20 + eps)
	return cap50(change*5) + cap50((volRatio-1)*50)
}

// RSI turning up from a low base.
func evalRSITrend(h market.History, action Action) float64 {
	series := rsiSeries(h.Closes(), 12)
	if action == ActionBuy {
		return (last(series)-prev(series))*20 + 50
	}
	return (last(series) - 50) * 2
}

// Trade only above a rising medium-term trend.
func evalTrendFilter(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	closes := h.Closes()
	ma20, ma60 := smaLast(closes, 20), smaLast(closes, 60)
	if ma20 <= ma60 || ma60 <= 0 {
		return 20
	}
	return (ma20/ma60-1)*1000 + 50
}

func evalMACross(h market.History, action Action) float64 {
	closes := h.Closes()
	ma5, ma20 := smaLast(closes, 5), smaLast(closes, 20)
	if ma5 <= 0 || ma20 <= 0 {
		return 0
	}
	if action == ActionBuy {
		return (ma5/ma20-1)*2000 + 50
	}
	return (ma20/ma5-1)*2000 + 50
}

// Discrete multi-MA stack score.
func evalMACrossStrength(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	closes := h.Closes()
	ma5, ma10, ma20 := smaLast(closes, 5), smaLast(closes, 10), smaLast(closes, 20)
	switch {
	case ma5 > ma10 && ma10 > ma20:
		return 100
	case ma5 > ma10:
		return 70
	default:
		return 40
	}
}

func evalCloseAboveMA(h market.History, action Action) float64 {
	closes := h.Closes()
	ma20 := smaLast(closes, 20)
	c := last(closes)
	if ma20 <= 0 || c <= 0 {
		return 0
	}
	if action == ActionBuy {
		return (c/ma20-1)*1000 + 50
	}
	return (ma20/c-1)*1000 + 50
}

// MA alignment plus volume expansion, each factor bounded.
func evalVolumeMA(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	closes := h.Closes()
	vols := h.Volumes()
	ma5, ma20 := smaLast(closes, 5), smaLast(closes, 20)
	volRatio := last(vols) / (smaLast(vols, 20) + eps)

	maScore := 30.0
	if ma5 > ma20 {
		maScore = 50
	}
	return maScore + cap50((volRatio-1)*50)
}

// Close confirming yesterday's 20-day high breakout.
func evalBreakoutConfirm(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	highs := h.Highs()
	maxSeries := maxSeries20(highs)
	prevHigh20 := prev(maxSeries)
	if prevHigh20 <= 0 {
		return 0
	}
	c := last(h.Closes())
	return (c/prevHigh20-1)*1000 + 50
}

// Narrow consolidation relative to the symbol's own typical 20-day range.
func evalPlatformBreakout(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	highs, lows := h.Highs(), h.Lows()
	ranges := rangeSeries20(highs, lows)
	if len(ranges) == 0 {
		return 40
	}
	curr := ranges[len(ranges)-1]
	avg := mean(ranges)
	if avg <= 0 {
		return 40
	}
	consolidation := curr / avg
	if consolidation >= 0.8 {
		return 40
	}
	return (1-consolidation)*100 + 50
}

// rangeSeries20 is the rolling 20-bar high-low range, valid entries only.
func rangeSeries20(highs, lows []float64) []float64 {
	const period = 20
	if len(highs) < period {
		return nil
	}
	out := make([]float64, 0, len(highs)-period+1)
	for i := period - 1; i < len(highs); i++ {
		hi := math.Inf(-1)
		lo := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			hi = math.Max(hi, highs[j])
			lo = math.Min(lo, lows[j])
		}
		out = append(out, hi-lo)
	}
	return out
}

func maxSeries20(xs []float64) []float64 {
	const period = 20
	if len(xs) < period {
		return nil
	}
	out := make([]float64, 0, len(xs)-period+1)
	for i := period - 1; i < len(xs); i++ {
		hi := math.Inf(-1)
		for j := i - period + 1; j <= i; j++ {
			hi = math.Max(hi, xs[j])
		}
		out = append(out, hi)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
