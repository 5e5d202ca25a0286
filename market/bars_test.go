package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestNewHistorySortsAndValidates(t *testing.T) {
	t.Parallel()

	bars := []DailyBar{
		{Symbol: "A", Date: day("2024-01-03"), Close: 3},
		{Symbol: "A", Date: day("2024-01-02"), Close: 2},
		{Symbol: "A", Date: day("2024-01-04"), Close: 4},
	}
	h, err := NewHistory("A", bars)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, h.Closes())

	_, err = NewHistory("A", append(bars, DailyBar{Symbol: "A", Date: day("2024-01-02")}))
	assert.Error(t, err, "duplicate date must be rejected")

	_, err = NewHistory("A", []DailyBar{{Symbol: "B", Date: day("2024-01-02")}})
	assert.Error(t, err, "foreign symbol must be rejected")
}

func TestBeforeExcludesCutoffDate(t *testing.T) {
	t.Parallel()

	h, err := NewHistory("A", []DailyBar{
		{Symbol: "A", Date: day("2024-01-02"), Close: 2},
		{Symbol: "A", Date: day("2024-01-03"), Close: 3},
		{Symbol: "A", Date: day("2024-01-04"), Close: 4},
	})
	require.NoError(t, err)

	trimmed := h.Before(day("2024-01-04"))
	assert.Equal(t, 2, trimmed.Len())
	last, ok := trimmed.Last()
	require.True(t, ok)
	assert.Equal(t, day("2024-01-03"), last.Date)

	through := h.Through(day("2024-01-03"))
	assert.Equal(t, 2, through.Len())
}

func TestChangeOver(t *testing.T) {
	t.Parallel()

	h, _ := NewHistory("A", []DailyBar{
		{Symbol: "A", Date: day("2024-01-02"), Close: 100},
		{Symbol: "A", Date: day("2024-01-03"), Close: 105},
		{Symbol: "A", Date: day("2024-01-04"), Close: 110},
	})

	chg, ok := h.ChangeOver(2)
	require.True(t, ok)
	assert.InDelta(t, 0.10, chg, 1e-12)

	_, ok = h.ChangeOver(3)
	assert.False(t, ok, "insufficient bars must not fabricate a change")
}
