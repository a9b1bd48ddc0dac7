// Package testutils provides shared utilities for testing
package testutils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurelian-labs/aurelius/internal/series"
)

// AssertEqual is a helper function for asserting equality in tests
func AssertEqual(t *testing.T, expected, actual any, message string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", message, expected, actual)
	}
}

// AssertTrue is a helper function for asserting boolean true
func AssertTrue(t *testing.T, condition bool, message string) {
	t.Helper()
	if !condition {
		t.Errorf("%s: expected true, got false", message)
	}
}

// AssertFalse is a helper function for asserting boolean false
func AssertFalse(t *testing.T, condition bool, message string) {
	t.Helper()
	if condition {
		t.Errorf("%s: expected false, got true", message)
	}
}

// AssertNil is a helper function for asserting nil values
func AssertNil(t *testing.T, value any, message string) {
	t.Helper()
	if value != nil {
		t.Errorf("%s: expected nil, got %v", message, value)
	}
}

// AssertNotNil is a helper function for asserting non-nil values
func AssertNotNil(t *testing.T, value any, message string) {
	t.Helper()
	if value == nil {
		t.Errorf("%s: expected non-nil value, got nil", message)
	}
}

// AssertNoError is a helper function for asserting no error
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", message, err)
	}
}

// AssertError is a helper function for asserting an error
func AssertError(t *testing.T, err error, message string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", message)
	}
}

// AssertDecimalEqual compares a decimal against its expected float value
func AssertDecimalEqual(t *testing.T, expected float64, actual decimal.Decimal, message string) {
	t.Helper()
	if !actual.Equal(decimal.NewFromFloat(expected)) {
		t.Errorf("%s: expected %v, got %s", message, expected, actual.String())
	}
}

var fixtureBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// MakeBar builds a bar for the given index with explicit OHLC and ATR.
// Indicator fields default to neutral values that pass no filter by
// accident and fail none either.
func MakeBar(i int, open, high, low, close, atr float64) series.Bar {
	return series.Bar{
		Timestamp:   fixtureBase.Add(time.Duration(i) * time.Hour),
		Open:        decimal.NewFromFloat(open),
		High:        decimal.NewFromFloat(high),
		Low:         decimal.NewFromFloat(low),
		Close:       decimal.NewFromFloat(close),
		Volume:      decimal.NewFromFloat(1000),
		ATR:         decimal.NewFromFloat(atr),
		EMAFast:     decimal.NewFromFloat(close),
		EMASlow:     decimal.NewFromFloat(close),
		RSI:         50,
		ADX:         25,
		VolumeRatio: 1.0,
		EMADist:     0,
	}
}

// FlatSeries returns n bars pinned at a constant price. Nothing moves,
// so no stop or target can fire until a test mutates specific bars.
func FlatSeries(symbol string, n int, price, atr float64) *series.Series {
	bars := make([]series.Bar, n)
	for i := range bars {
		bars[i] = MakeBar(i, price, price, price, price, atr)
	}
	return series.New(symbol, bars)
}

// SignalAt returns an entry signal of length n firing only at the given
// bar indices.
func SignalAt(n int, indices ...int) []bool {
	signal := make([]bool, n)
	for _, idx := range indices {
		signal[idx] = true
	}
	return signal
}
