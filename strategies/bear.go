package strategies

import (
	"math"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/regime"
)

// The 6 bear-market strategies: oversold and reversal setups that buy
// weakness rather than chase strength.
func bearStrategies() []Strategy {
	bear := []regime.Regime{regime.Bear}
	return []Strategy{
		&tech{name: "momentum_reversal", regimes: bear, minBars: 15, eval: evalMomentumReversal},
		&tech{name: "williams_r", regimes: bear, minBars: 20, eval: evalWilliamsR},
		&tech{name: "rsi_contrarian", regimes: bear, minBars: 20, eval: evalRSIContrarian},
		&tech{name: "double_bottom", regimes: bear, minBars: 40, eval: evalDoubleBottom},
		&tech{name: "volume_pullback", regimes: bear, minBars: 21, eval: evalVolumePullback},
		&tech{name: "macd_divergence", regimes: bear, minBars: 55, eval: evalMACDDivergence},
	}
}

// Deep two-week drop as a contrarian entry; continued momentum as exit.
func evalMomentumReversal(h market.History, action Action) float64 {
	change := changePct(h.Closes(), 14)
	if action == ActionBuy {
		return (math.Abs(change) - 5) * 6.67
	}
	return math.Min(100, math.Max(30, change*5))
}

// Williams %R over 14 bars: below -90 is washed out, above -10 is exhausted.
func evalWilliamsR(h market.History, action Action) float64 {
	hh := rollingMax(h.Highs(), 14)
	ll := rollingMin(h.Lows(), 14)
	c := last(h.Closes())
	wr := -100 * (hh - c) / (hh - ll + eps)
	if action == ActionBuy {
		// -100 maps to 100, -90 to 0; anything stronger is no washout.
		return (-wr - 90) * 10
	}
	return (wr + 10) * 2
}

func evalRSIContrarian(h market.History, action Action) float64 {
	rsi := rsiLast(h.Closes(), 12)
	if action == ActionBuy {
		return (30 - rsi) * 5
	}
	return (rsi - 50) * 2
}

// Multiple recent lows sitting on the same floor.
func evalDoubleBottom(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	lows := h.Lows()
	floor := rollingMin(lows, 20)
	if floor <= 0 {
		return 30
	}
	touches := 0
	start := len(lows) - 20
	if start < 0 {
		start = 0
	}
	for _, lo := range lows[start:] {
		if lo <= floor*1.02 {
			touches++
		}
	}
	if touches < 2 {
		return 30
	}
	return math.Min(100, 50+float64(touches)*20)
}

// Price easing back on shrinking volume.
func evalVolumePullback(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	change := changePct(h.Closes(), 4)
	if change >= 0 {
		return 30
	}
	vols := h.Volumes()
	volMA := smaLast(vols, 20)
	ratio := last(vols) / (volMA + eps)
	return cap50((1-ratio)*100) + cap50(math.Abs(change)*5)
}

// Price making a lower low while the MACD line holds above its own low:
// a positive divergence.
func evalMACDDivergence(h market.History, action Action) float64 {
	if action == ActionSell {
		return 50
	}
	closes := h.Closes()
	line := macdLine(closes)

	low20 := rollingMin(closes, 20)
	if low20 <= 0 {
		return 30
	}
	priceDev := (last(closes) - low20) / low20

	macdLow := rollingMin(line, 20)
	macdDev := (last(line) - macdLow) / (math.Abs(macdLow) + eps)

	return 50 + (macdDev-priceDev)*100
}
