package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMinMaxDecimal(t *testing.T) {
	a := decimal.NewFromFloat(1.5)
	b := decimal.NewFromFloat(2.5)

	if !MinDecimal(a, b).Equal(a) {
		t.Errorf("MinDecimal(%v, %v) = %v, want %v", a, b, MinDecimal(a, b), a)
	}
	if !MaxDecimal(a, b).Equal(b) {
		t.Errorf("MaxDecimal(%v, %v) = %v, want %v", a, b, MaxDecimal(a, b), b)
	}
	if !MinDecimal(a, a).Equal(a) {
		t.Errorf("MinDecimal of equal values should return the value")
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		oldValue decimal.Decimal
		newValue decimal.Decimal
		expected decimal.Decimal
	}{
		{"Increase", decimal.NewFromFloat(100), decimal.NewFromFloat(110), decimal.NewFromFloat(10)},
		{"Decrease", decimal.NewFromFloat(100), decimal.NewFromFloat(95), decimal.NewFromFloat(-5)},
		{"No change", decimal.NewFromFloat(100), decimal.NewFromFloat(100), decimal.Zero},
		{"Zero base", decimal.Zero, decimal.NewFromFloat(100), decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PercentChange(tt.oldValue, tt.newValue)
			if !result.Equal(tt.expected) {
				t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.oldValue, tt.newValue, result, tt.expected)
			}
		})
	}
}

func TestStandardDeviation(t *testing.T) {
	values := []decimal.Decimal{
		decimal.NewFromFloat(2),
		decimal.NewFromFloat(4),
		decimal.NewFromFloat(4),
		decimal.NewFromFloat(4),
		decimal.NewFromFloat(5),
		decimal.NewFromFloat(5),
		decimal.NewFromFloat(7),
		decimal.NewFromFloat(9),
	}

	result := StandardDeviation(values)
	expected := decimal.NewFromFloat(2)
	if !result.Sub(expected).Abs().LessThan(decimal.NewFromFloat(0.0001)) {
		t.Errorf("StandardDeviation = %v, want %v", result, expected)
	}

	if !StandardDeviation(nil).Equal(decimal.Zero) {
		t.Error("StandardDeviation of empty slice should be zero")
	}
}
