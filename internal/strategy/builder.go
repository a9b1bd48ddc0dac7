// Package strategy composes pattern flags and indicator filters into
// entry signals for the backtest engine. Filters are a closed set of
// typed descriptors evaluated against bar fields; there is no dynamic
// expression parsing.
package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/aurelian-labs/aurelius/internal/series"
)

// FilterKind classifies what a filter is testing.
type FilterKind string

const (
	KindMomentum   FilterKind = "momentum"   // RSI
	KindStrength   FilterKind = "strength"   // ADX
	KindVolatility FilterKind = "volatility" // ATR percent
	KindProximity  FilterKind = "proximity"  // distance from fast EMA
	KindVolume     FilterKind = "volume"     // volume ratio
)

// Field identifies the bar field a filter compares against.
type Field string

const (
	FieldRSI         Field = "rsi"
	FieldADX         Field = "adx"
	FieldATRPct      Field = "atr_pct"
	FieldEMADist     Field = "ema_dist"
	FieldVolumeRatio Field = "volume_ratio"
)

// Op is a comparison operator.
type Op string

const (
	OpGT  Op = ">"
	OpGTE Op = ">="
	OpLT  Op = "<"
	OpLTE Op = "<="
)

// kindFields maps each filter kind to the fields it may test.
var kindFields = map[FilterKind][]Field{
	KindMomentum:   {FieldRSI},
	KindStrength:   {FieldADX},
	KindVolatility: {FieldATRPct},
	KindProximity:  {FieldEMADist},
	KindVolume:     {FieldVolumeRatio},
}

// FilterExpr is one row-wise boolean comparison over a bar field.
type FilterExpr struct {
	Kind      FilterKind
	Field     Field
	Op        Op
	Threshold float64
}

// Validate checks the descriptor against the closed field and operator
// sets. Invalid combinations fail here, at build time.
func (f FilterExpr) Validate() error {
	fields, ok := kindFields[f.Kind]
	if !ok {
		return fmt.Errorf("unknown filter kind %q", f.Kind)
	}
	valid := false
	for _, field := range fields {
		if field == f.Field {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("field %q is not valid for filter kind %q", f.Field, f.Kind)
	}
	switch f.Op {
	case OpGT, OpGTE, OpLT, OpLTE:
	default:
		return fmt.Errorf("unknown comparison operator %q", f.Op)
	}
	if math.IsNaN(f.Threshold) || math.IsInf(f.Threshold, 0) {
		return fmt.Errorf("threshold for %s filter must be finite", f.Kind)
	}
	return nil
}

func (f FilterExpr) String() string {
	return fmt.Sprintf("%s %s %g", f.Field, f.Op, f.Threshold)
}

func (f FilterExpr) eval(bar series.Bar) bool {
	var value float64
	switch f.Field {
	case FieldRSI:
		value = bar.RSI
	case FieldADX:
		value = bar.ADX
	case FieldATRPct:
		value = bar.ATRPct()
	case FieldEMADist:
		value = bar.EMADist
	case FieldVolumeRatio:
		value = bar.VolumeRatio
	}
	switch f.Op {
	case OpGT:
		return value > f.Threshold
	case OpGTE:
		return value >= f.Threshold
	case OpLT:
		return value < f.Threshold
	case OpLTE:
		return value <= f.Threshold
	}
	return false
}

// TrendCondition is an enumerated trend predicate over the two EMAs.
type TrendCondition string

const (
	TrendNone           TrendCondition = ""
	TrendFastAboveSlow  TrendCondition = "ema_fast_above_slow"
	TrendFastBelowSlow  TrendCondition = "ema_fast_below_slow"
	TrendCloseAboveFast TrendCondition = "close_above_ema_fast"
	TrendCloseBelowFast TrendCondition = "close_below_ema_fast"
)

// Validate checks the trend condition against the enumeration.
func (tc TrendCondition) Validate() error {
	switch tc {
	case TrendNone, TrendFastAboveSlow, TrendFastBelowSlow, TrendCloseAboveFast, TrendCloseBelowFast:
		return nil
	}
	return fmt.Errorf("unknown trend condition %q", tc)
}

func (tc TrendCondition) eval(bar series.Bar) bool {
	switch tc {
	case TrendFastAboveSlow:
		return bar.EMAFast.GreaterThan(bar.EMASlow)
	case TrendFastBelowSlow:
		return bar.EMAFast.LessThan(bar.EMASlow)
	case TrendCloseAboveFast:
		return bar.Close.GreaterThan(bar.EMAFast)
	case TrendCloseBelowFast:
		return bar.Close.LessThan(bar.EMAFast)
	}
	return true
}

// Builder accumulates conditions and combines them into one entry
// signal aligned with the series index. Conditions are independent and
// commutative under AND; insertion order is kept only for descriptions.
type Builder struct {
	series     *series.Series
	conditions [][]bool
	descs      []string
}

// NewBuilder creates a builder over the given series.
func NewBuilder(s *series.Series) *Builder {
	return &Builder{series: s}
}

func (b *Builder) addCondition(flags []bool, desc string) {
	b.conditions = append(b.conditions, flags)
	b.descs = append(b.descs, desc)
}

// AddPattern adds the named pattern column as a condition.
func (b *Builder) AddPattern(name string) error {
	flags, err := b.series.Pattern(name)
	if err != nil {
		return err
	}
	b.addCondition(flags, fmt.Sprintf("pattern: %s", name))
	return nil
}

// AddTrend adds an enumerated trend condition. TrendNone is a no-op.
func (b *Builder) AddTrend(tc TrendCondition) error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if tc == TrendNone {
		return nil
	}
	flags := make([]bool, b.series.Len())
	for i, bar := range b.series.Bars {
		flags[i] = tc.eval(bar)
	}
	b.addCondition(flags, fmt.Sprintf("trend: %s", tc))
	return nil
}

// AddFilter adds a typed filter condition, validating it first.
func (b *Builder) AddFilter(f FilterExpr) error {
	if err := f.Validate(); err != nil {
		return err
	}
	flags := make([]bool, b.series.Len())
	for i, bar := range b.series.Bars {
		flags[i] = f.eval(bar)
	}
	b.addCondition(flags, fmt.Sprintf("%s: %s", f.Kind, f))
	return nil
}

// EntrySignal combines every added condition with AND. It errors if no
// condition was added.
func (b *Builder) EntrySignal() ([]bool, error) {
	if len(b.conditions) == 0 {
		return nil, fmt.Errorf("no conditions added to strategy")
	}
	signal := make([]bool, b.series.Len())
	copy(signal, b.conditions[0])
	for _, cond := range b.conditions[1:] {
		for i := range signal {
			signal[i] = signal[i] && cond[i]
		}
	}
	return signal, nil
}

// Description returns a human-readable conjunction of all conditions.
func (b *Builder) Description() string {
	if len(b.descs) == 0 {
		return "empty strategy"
	}
	return strings.Join(b.descs, " AND ")
}

// CountSignals returns the number of true entries in the combined signal.
func (b *Builder) CountSignals() (int, error) {
	signal, err := b.EntrySignal()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, on := range signal {
		if on {
			count++
		}
	}
	return count, nil
}

// Spec describes one pattern strategy: a pattern plus optional filters.
// Nil thresholds disable the corresponding filter.
type Spec struct {
	Pattern        string
	Trend          TrendCondition
	RSIMin         *float64
	RSIMax         *float64
	ADXMin         *float64
	ATRPctMin      *float64
	ATRPctMax      *float64
	EMADistMax     *float64
	VolumeRatioMin *float64
}

// BuildEntrySignal assembles the entry signal for a spec over a series.
func BuildEntrySignal(s *series.Series, spec Spec) ([]bool, error) {
	b := NewBuilder(s)

	if err := b.AddPattern(spec.Pattern); err != nil {
		return nil, err
	}
	if err := b.AddTrend(spec.Trend); err != nil {
		return nil, err
	}

	filters := []struct {
		threshold *float64
		expr      func(v float64) FilterExpr
	}{
		{spec.RSIMin, func(v float64) FilterExpr {
			return FilterExpr{Kind: KindMomentum, Field: FieldRSI, Op: OpGTE, Threshold: v}
		}},
		{spec.RSIMax, func(v float64) FilterExpr {
			return FilterExpr{Kind: KindMomentum, Field: FieldRSI, Op: OpLTE, Threshold: v}
		}},
		{spec.ADXMin, func(v float64) FilterExpr {
			return FilterExpr{Kind: KindStrength, Field: FieldADX, Op: OpGTE, Threshold: v}
		}},
		{spec.ATRPctMin, func(v float64) FilterExpr {
			return FilterExpr{Kind: KindVolatility, Field: FieldATRPct, Op: OpGTE, Threshold: v}
		}},
		{spec.ATRPctMax, func(v float64) FilterExpr {
			return FilterExpr{Kind: KindVolatility, Field: FieldATRPct, Op: OpLTE, Threshold: v}
		}},
		{spec.EMADistMax, func(v float64) FilterExpr {
			return FilterExpr{Kind: KindProximity, Field: FieldEMADist, Op: OpLTE, Threshold: v}
		}},
		{spec.VolumeRatioMin, func(v float64) FilterExpr {
			return FilterExpr{Kind: KindVolume, Field: FieldVolumeRatio, Op: OpGTE, Threshold: v}
		}},
	}
	for _, f := range filters {
		if f.threshold == nil {
			continue
		}
		if err := b.AddFilter(f.expr(*f.threshold)); err != nil {
			return nil, err
		}
	}

	return b.EntrySignal()
}
