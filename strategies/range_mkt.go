package strategies

import (
	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/regime"
)

// The 6 range-market strategies: mean reversion between support and
// resistance while the index drifts sideways.
func rangeStrategies() []Strategy {
	rng := []regime.Regime{regime.Range}
	return []Strategy{
		&tech{name: "bollinger", regimes: rng, minBars: 21, eval: evalBollinger},
		&tech{name: "rsi_ma", regimes: rng, minBars: 21, eval: evalRSIMA},
		&tech{name: "bollinger_rsi", regimes: rng, minBars: 21, eval: evalBollingerRSI},
		&tech{name: "support_resistance", regimes: rng, minBars: 21, eval: evalSupportResistance},
		&tech{name: "volatility_breakout", regimes: rng, minBars: 21, eval: evalVolatilityBreakout},
		&tech{name: "ma_recovery", regimes: rng, minBars: 21, eval: evalMARecovery},
	}
}

// Buy the lower band, sell the upper.
func evalBollinger(h market.History, action Action) float64 {
	upper, middle, lower, stddev := bbands(h.Closes(), 20)
	c := last(h.Closes())
	if stddev <= 0 || lower <= 0 || upper <= 0 {
		return 0
	}
	if action == ActionBuy {
		if c < lower {
			return (lower-c)/lower*200 + 50
		}
		return 100 - (c-middle)/stddev*30
	}
	if c > upper {
		return (c-upper)/upper*200 + 50
	}
	return (c-middle)/stddev*30 + 50
}

// Oversold RSI with the 20-day MA as a trend sanity check.
func evalRSIMA(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	closes := h.Closes()
	rsi := rsiLast(closes, 12)
	maScore := 25.0
	if last(closes) > smaLast(closes, 20) {
		maScore = 50
	}
	return cap50((30-rsi)*5) + maScore
}

func evalBollingerRSI(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	closes := h.Closes()
	_, _, lower, _ := bbands(closes, 20)
	bandScore := 30.0
	if last(closes) < lower {
		bandScore = 50
	}
	rsi := rsiLast(closes, 12)
	return bandScore + cap50((30-rsi)*5)
}

// Distance from the 20-day floor (buy) or ceiling (sell).
func evalSupportResistance(h market.History, action Action) float64 {
	if action == ActionBuy {
		support := rollingMin(h.Lows(), 20)
		if support <= 0 {
			return 0
		}
		dist := (last(h.Lows()) - support) / support
		return 100 - dist*1000
	}
	resistance := rollingMax(h.Highs(), 20)
	if resistance <= 0 {
		return 0
	}
	dist := (resistance - last(h.Highs())) / resistance
	return 100 - dist*1000
}

// Today's bar range expanding against the trailing 20-day channel width.
func evalVolatilityBreakout(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	highs, lows, closes := h.Highs(), h.Lows(), h.Closes()
	c := last(closes)
	if c <= 0 {
		return 0
	}
	volCurr := (last(highs) - last(lows)) / c * 100

	ranges := rangeSeries20(highs, lows)
	if len(ranges) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for i, r := range ranges {
		base := closes[i+19]
		if base <= 0 {
			continue
		}
		sum += r / base * 100
		n++
	}
	if n == 0 || sum <= 0 {
		return 0
	}
	volMA := sum / float64(n)
	return (volCurr/volMA-1)*100 + 50
}

// Close reclaiming the 20-day MA from below.
func evalMARecovery(h market.History, action Action) float64 {
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
