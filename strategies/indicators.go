package strategies

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// Thin accessors over go-talib: every strategy wants "the latest value of
// indicator X", so these return the tail of the series and guard the
// division-by-zero cases pandas papered over with epsilons.

const eps = 1e-10

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// cap50 bounds a partial sub-score used by two-factor strategies.
func cap50(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(50, v))
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

func prev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return xs[len(xs)-2]
}

func smaLast(xs []float64, period int) float64 { return last(talib.Sma(xs, period)) }

func rsiLast(xs []float64, period int) float64 { return last(talib.Rsi(xs, period)) }

func rsiSeries(xs []float64, period int) []float64 { return talib.Rsi(xs, period) }

// macdHist returns the last two MACD histogram values (12/26/9).
func macdHist(closes []float64) (curr, previous float64) {
	_, _, hist := talib.Macd(closes, 12, 26, 9)
	return last(hist), prev(hist)
}

// macdLine returns the full MACD line (EMA12 - EMA26).
func macdLine(closes []float64) []float64 {
	line, _, _ := talib.Macd(closes, 12, 26, 9)
	return line
}

// rollingMax returns the max of the final period values.
func rollingMax(xs []float64, period int) float64 { return last(talib.Max(xs, period)) }

func rollingMin(xs []float64, period int) float64 { return last(talib.Min(xs, period)) }

// bbands returns the latest Bollinger values plus the latest 20-period
// standard deviation of closes.
func bbands(closes []float64, period int) (upper, middle, lower, stddev float64) {
	u, m, l := talib.BBands(closes, period, 2, 2, talib.SMA)
	sd := talib.StdDev(closes, period, 1)
	return last(u), last(m), last(l), last(sd)
}

// changePct is the percent change from n bars back to the latest close.
func changePct(closes []float64, n int) float64 {
	if len(closes) < n+1 {
		return 0
	}
	base := closes[len(closes)-1-n]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1] - base) / base * 100
}
