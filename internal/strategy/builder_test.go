package strategy

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aurelian-labs/aurelius/internal/testutils"
)

func TestFilterExpr_Validate(t *testing.T) {
	valid := FilterExpr{Kind: KindMomentum, Field: FieldRSI, Op: OpGTE, Threshold: 40}
	testutils.AssertNoError(t, valid.Validate(), "Valid filter should pass")

	unknownKind := FilterExpr{Kind: "sentiment", Field: FieldRSI, Op: OpGTE, Threshold: 40}
	testutils.AssertError(t, unknownKind.Validate(), "Unknown kind should fail")

	wrongField := FilterExpr{Kind: KindMomentum, Field: FieldADX, Op: OpGTE, Threshold: 40}
	testutils.AssertError(t, wrongField.Validate(), "ADX is not a momentum field")

	badOp := FilterExpr{Kind: KindMomentum, Field: FieldRSI, Op: "!=", Threshold: 40}
	testutils.AssertError(t, badOp.Validate(), "Unknown operator should fail")

	nanThreshold := FilterExpr{Kind: KindMomentum, Field: FieldRSI, Op: OpGTE, Threshold: math.NaN()}
	testutils.AssertError(t, nanThreshold.Validate(), "NaN threshold should fail")
}

func TestTrendCondition_Validate(t *testing.T) {
	testutils.AssertNoError(t, TrendNone.Validate(), "Empty trend is valid")
	testutils.AssertNoError(t, TrendFastAboveSlow.Validate(), "Known trend is valid")
	testutils.AssertError(t, TrendCondition("ema_crossed_twice").Validate(), "Unknown trend should fail")
}

func TestBuilder_MissingPattern(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 10, 100, 1.0)

	b := NewBuilder(s)
	err := b.AddPattern("pattern_missing")
	testutils.AssertError(t, err, "Unknown pattern column should fail")
}

func TestBuilder_NoConditions(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 10, 100, 1.0)

	b := NewBuilder(s)
	_, err := b.EntrySignal()
	testutils.AssertError(t, err, "EntrySignal without conditions should fail")
}

func TestBuilder_ANDLogic(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 10, 100, 1.0)
	// Pattern fires at bars 2, 5 and 8; only bar 5 also clears the RSI floor.
	pattern := testutils.SignalAt(10, 2, 5, 8)
	testutils.AssertNoError(t, s.SetPattern("pattern_hammer", pattern), "SetPattern should succeed")
	s.Bars[5].RSI = 65

	b := NewBuilder(s)
	testutils.AssertNoError(t, b.AddPattern("pattern_hammer"), "AddPattern should succeed")
	testutils.AssertNoError(t, b.AddFilter(FilterExpr{
		Kind: KindMomentum, Field: FieldRSI, Op: OpGTE, Threshold: 60,
	}), "AddFilter should succeed")

	signal, err := b.EntrySignal()
	testutils.AssertNoError(t, err, "EntrySignal should succeed")
	testutils.AssertEqual(t, 10, len(signal), "Signal must align with the series")
	for i, on := range signal {
		testutils.AssertEqual(t, i == 5, on, "Only the bar passing both conditions should fire")
	}

	count, err := b.CountSignals()
	testutils.AssertNoError(t, err, "CountSignals should succeed")
	testutils.AssertEqual(t, 1, count, "Exactly one bar fires")
}

func TestBuilder_TrendCondition(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 6, 100, 1.0)
	pattern := testutils.SignalAt(6, 1, 3)
	testutils.AssertNoError(t, s.SetPattern("pattern_engulfing", pattern), "SetPattern should succeed")
	// Fast EMA above slow only at bar 3.
	s.Bars[3].EMAFast = decimal.NewFromInt(101)
	s.Bars[3].EMASlow = decimal.NewFromInt(100)

	b := NewBuilder(s)
	testutils.AssertNoError(t, b.AddPattern("pattern_engulfing"), "AddPattern should succeed")
	testutils.AssertNoError(t, b.AddTrend(TrendFastAboveSlow), "AddTrend should succeed")

	signal, err := b.EntrySignal()
	testutils.AssertNoError(t, err, "EntrySignal should succeed")
	testutils.AssertFalse(t, signal[1], "Bar without trend alignment should not fire")
	testutils.AssertTrue(t, signal[3], "Bar with trend alignment should fire")
}

func TestBuilder_TrendNoneIsNoOp(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 4, 100, 1.0)
	pattern := testutils.SignalAt(4, 0, 2)
	testutils.AssertNoError(t, s.SetPattern("pattern_doji", pattern), "SetPattern should succeed")

	b := NewBuilder(s)
	testutils.AssertNoError(t, b.AddPattern("pattern_doji"), "AddPattern should succeed")
	testutils.AssertNoError(t, b.AddTrend(TrendNone), "Empty trend should be accepted")

	count, err := b.CountSignals()
	testutils.AssertNoError(t, err, "CountSignals should succeed")
	testutils.AssertEqual(t, 2, count, "Empty trend must not restrict the signal")
}

func TestBuilder_Description(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 4, 100, 1.0)
	testutils.AssertNoError(t, s.SetPattern("pattern_doji", make([]bool, 4)), "SetPattern should succeed")

	b := NewBuilder(s)
	testutils.AssertEqual(t, "empty strategy", b.Description(), "Empty builder description")

	testutils.AssertNoError(t, b.AddPattern("pattern_doji"), "AddPattern should succeed")
	testutils.AssertNoError(t, b.AddFilter(FilterExpr{
		Kind: KindStrength, Field: FieldADX, Op: OpGTE, Threshold: 20,
	}), "AddFilter should succeed")

	testutils.AssertEqual(t, "pattern: pattern_doji AND strength: adx >= 20", b.Description(),
		"Description should join conditions with AND")
}

func TestBuildEntrySignal(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 12, 100, 1.0)
	pattern := testutils.SignalAt(12, 3, 6, 9)
	testutils.AssertNoError(t, s.SetPattern("pattern_hammer", pattern), "SetPattern should succeed")
	s.Bars[3].RSI = 45
	s.Bars[6].RSI = 55
	s.Bars[9].RSI = 55
	s.Bars[9].ADX = 10

	rsiMin := 50.0
	adxMin := 20.0
	signal, err := BuildEntrySignal(s, Spec{
		Pattern: "pattern_hammer",
		RSIMin:  &rsiMin,
		ADXMin:  &adxMin,
	})
	testutils.AssertNoError(t, err, "BuildEntrySignal should succeed")

	testutils.AssertFalse(t, signal[3], "Bar below the RSI floor should not fire")
	testutils.AssertTrue(t, signal[6], "Bar clearing every filter should fire")
	testutils.AssertFalse(t, signal[9], "Bar below the ADX floor should not fire")
}

func TestBuildEntrySignal_UnknownPattern(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 5, 100, 1.0)

	_, err := BuildEntrySignal(s, Spec{Pattern: "pattern_missing"})
	testutils.AssertError(t, err, "Unknown pattern should fail")
}

func TestPatternLists(t *testing.T) {
	bullish := BullishPatterns()
	bearish := BearishPatterns()
	testutils.AssertTrue(t, len(bullish) > 0, "Bullish list should not be empty")
	testutils.AssertTrue(t, len(bearish) > 0, "Bearish list should not be empty")

	seen := make(map[string]bool)
	for _, name := range append(bullish, bearish...) {
		testutils.AssertFalse(t, seen[name], "Pattern lists must not repeat names")
		seen[name] = true
	}
}
