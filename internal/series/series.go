// Package series holds the precomputed feature series consumed by the
// backtest engine and the optimizer. A Series is read-only once built.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single OHLCV bar with its precomputed indicator values.
type Bar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal

	// Indicators computed upstream by the feature pipeline
	ATR         decimal.Decimal // absolute average true range
	RSI         float64
	ADX         float64
	EMAFast     decimal.Decimal
	EMASlow     decimal.Decimal
	VolumeRatio float64 // volume relative to its rolling average
	EMADist     float64 // distance from the fast EMA in ATR multiples
}

// ATRPct returns the ATR as a percentage of the close price.
func (b Bar) ATRPct() float64 {
	if b.Close.IsZero() {
		return 0
	}
	return b.ATR.Div(b.Close).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Series is a finite ordered sequence of bars plus one boolean column
// per pattern name. Pattern columns are index-aligned with Bars.
type Series struct {
	Symbol   string
	Bars     []Bar
	patterns map[string][]bool
}

// New creates a series from bars. Bars are assumed to be in timestamp order.
func New(symbol string, bars []Bar) *Series {
	return &Series{
		Symbol:   symbol,
		Bars:     bars,
		patterns: make(map[string][]bool),
	}
}

// Len returns the number of bars.
func (s *Series) Len() int {
	return len(s.Bars)
}

// SetPattern attaches a boolean pattern column to the series.
// The column must be index-aligned with the bars.
func (s *Series) SetPattern(name string, flags []bool) error {
	if len(flags) != len(s.Bars) {
		return fmt.Errorf("pattern %q has %d flags for %d bars", name, len(flags), len(s.Bars))
	}
	s.patterns[name] = flags
	return nil
}

// Pattern returns the named pattern column.
func (s *Series) Pattern(name string) ([]bool, error) {
	flags, ok := s.patterns[name]
	if !ok {
		return nil, fmt.Errorf("pattern column %q not found in series", name)
	}
	return flags, nil
}

// HasPattern reports whether the named pattern column exists.
func (s *Series) HasPattern(name string) bool {
	_, ok := s.patterns[name]
	return ok
}

// PatternCount returns how many bars have the named pattern set.
func (s *Series) PatternCount(name string) (int, error) {
	flags, err := s.Pattern(name)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, f := range flags {
		if f {
			count++
		}
	}
	return count, nil
}

// PatternNames returns the sorted names of all pattern columns.
func (s *Series) PatternNames() []string {
	names := make([]string, 0, len(s.patterns))
	for name := range s.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
