package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBars(n int) []Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, n)
	for i := range bars {
		price := decimal.NewFromInt(int64(100 + i))
		bars[i] = Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1000),
			ATR:       decimal.NewFromInt(2),
		}
	}
	return bars
}

func TestSeries_SetPattern(t *testing.T) {
	s := New("XAU-USD", testBars(10))

	require.NoError(t, s.SetPattern("pattern_hammer", make([]bool, 10)))
	assert.True(t, s.HasPattern("pattern_hammer"))
	assert.False(t, s.HasPattern("pattern_doji"))

	err := s.SetPattern("pattern_short", make([]bool, 5))
	require.Error(t, err, "misaligned pattern column must be rejected")
}

func TestSeries_PatternCount(t *testing.T) {
	s := New("XAU-USD", testBars(10))

	flags := make([]bool, 10)
	flags[2], flags[7] = true, true
	require.NoError(t, s.SetPattern("pattern_hammer", flags))

	count, err := s.PatternCount("pattern_hammer")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = s.PatternCount("pattern_missing")
	require.Error(t, err)
}

func TestSeries_PatternNames(t *testing.T) {
	s := New("XAU-USD", testBars(4))
	require.NoError(t, s.SetPattern("pattern_hammer", make([]bool, 4)))
	require.NoError(t, s.SetPattern("pattern_doji", make([]bool, 4)))

	assert.Equal(t, []string{"pattern_doji", "pattern_hammer"}, s.PatternNames(),
		"names should come back sorted")
}

func TestBar_ATRPct(t *testing.T) {
	bar := Bar{
		Close: decimal.NewFromInt(200),
		ATR:   decimal.NewFromInt(2),
	}
	assert.InDelta(t, 1.0, bar.ATRPct(), 1e-9)

	zero := Bar{}
	assert.Equal(t, 0.0, zero.ATRPct(), "zero close must not divide")
}
