// Package market defines the core market-data types shared by every other
// package: symbols, daily bars and per-symbol bar histories.
package market

import (
	"fmt"
	"sort"
	"time"
)

// Symbol identifies a tradable instrument, e.g. "600519.SH".
type Symbol string

// DailyBar is one day of OHLCV data for a symbol. Bars are immutable once
// recorded and unique per (symbol, date).
type DailyBar struct {
	Symbol Symbol
	Date   time.Time // UTC midnight of the trading date
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Amount float64 // traded amount in currency units
}

// Day normalizes t to UTC midnight so bar dates compare cleanly.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// History is an ascending, chronologically unique sequence of bars for one
// symbol. The zero value is an empty history.
type History struct {
	Symbol Symbol
	Bars   []DailyBar
}

// NewHistory sorts bars ascending by date and returns a History. It errors on
// duplicate dates or mixed symbols.
func NewHistory(sym Symbol, bars []DailyBar) (History, error) {
	sorted := make([]DailyBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for i, b := range sorted {
		if b.Symbol != sym {
			return History{}, fmt.Errorf("history %s: bar for wrong symbol %s", sym, b.Symbol)
		}
		if i > 0 && !sorted[i-1].Date.Before(b.Date) {
			return History{}, fmt.Errorf("history %s: duplicate bar date %s", sym, b.Date.Format("2006-01-02"))
		}
	}
	return History{Symbol: sym, Bars: sorted}, nil
}

func (h History) Len() int { return len(h.Bars) }

// Last returns the most recent bar, if any.
func (h History) Last() (DailyBar, bool) {
	if len(h.Bars) == 0 {
		return DailyBar{}, false
	}
	return h.Bars[len(h.Bars)-1], true
}

// Before returns the sub-history of bars dated strictly before cutoff.
// Decision code uses this to guarantee no bar from the decision date or later
// leaks into signal evaluation.
func (h History) Before(cutoff time.Time) History {
	i := sort.Search(len(h.Bars), func(i int) bool { return !h.Bars[i].Date.Before(cutoff) })
	return History{Symbol: h.Symbol, Bars: h.Bars[:i]}
}

// Through returns the sub-history of bars dated at or before cutoff.
func (h History) Through(cutoff time.Time) History {
	i := sort.Search(len(h.Bars), func(i int) bool { return h.Bars[i].Date.After(cutoff) })
	return History{Symbol: h.Symbol, Bars: h.Bars[:i]}
}

// Closes returns the close series, oldest first.
func (h History) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

func (h History) Highs() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.High
	}
	return out
}

func (h History) Lows() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Low
	}
	return out
}

func (h History) Volumes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Volume
	}
	return out
}

// ChangeOver returns the fractional close-to-close change over the last n
// bars, and false when fewer than n+1 bars exist.
func (h History) ChangeOver(n int) (float64, bool) {
	if len(h.Bars) < n+1 || n <= 0 {
		return 0, false
	}
	prev := h.Bars[len(h.Bars)-1-n].Close
	if prev == 0 {
		return 0, false
	}
	return (h.Bars[len(h.Bars)-1].Close - prev) / prev, true
}

// AvgAmount returns the mean traded amount over the last n bars, and false
// when fewer than n bars exist.
func (h History) AvgAmount(n int) (float64, bool) {
	if len(h.Bars) < n || n <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, b := range h.Bars[len(h.Bars)-n:] {
		sum += b.Amount
	}
	return sum / float64(n), true
}

// SortSymbols sorts symbols ascending in place and returns the slice. All
// ranking and iteration over symbol sets goes through this to keep runs
// reproducible.
func SortSymbols(syms []Symbol) []Symbol {
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	return syms
}
