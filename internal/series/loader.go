package series

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/aurelian-labs/aurelius/internal/logger"
)

// Loader loads precomputed feature series from disk.
type Loader struct{}

// NewLoader creates a new loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Columns the loader requires in every feature file, beyond pattern flags.
var requiredColumns = []string{
	"time", "open", "high", "low", "close", "volume",
	"atr_14", "rsi_14", "adx_14", "ema_20", "ema_50",
	"volume_ratio", "dist_ema20",
}

// LoadCSV loads a feature series from a CSV file. The header row names
// the columns; every column whose name starts with "pattern_" becomes a
// boolean pattern column on the series.
func (l *Loader) LoadCSV(filename, symbol string) (*Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q in %s", name, filename)
		}
	}

	var patternCols []string
	for name := range index {
		if strings.HasPrefix(name, "pattern_") {
			patternCols = append(patternCols, name)
		}
	}

	bars := make([]Bar, 0)
	patterns := make(map[string][]bool, len(patternCols))
	for _, name := range patternCols {
		patterns[name] = make([]bool, 0)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		bar, err := parseFeatureRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(bars)+2, err)
		}
		bars = append(bars, bar)

		for _, name := range patternCols {
			patterns[name] = append(patterns[name], parseFlag(record[index[name]]))
		}
	}

	s := New(symbol, bars)
	for name, flags := range patterns {
		if err := s.SetPattern(name, flags); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseFeatureRecord(record []string, index map[string]int) (Bar, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}

	timestamp, err := parseTimestamp(field("time"))
	if err != nil {
		return Bar{}, err
	}

	prices := make(map[string]decimal.Decimal, 7)
	for _, name := range []string{"open", "high", "low", "close", "volume", "atr_14"} {
		v, err := decimal.NewFromString(field(name))
		if err != nil {
			return Bar{}, fmt.Errorf("invalid %s value %q: %w", name, field(name), err)
		}
		prices[name] = v
	}

	floats := make(map[string]float64, 5)
	for _, name := range []string{"rsi_14", "adx_14", "volume_ratio", "dist_ema20"} {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil || math.IsNaN(v) {
			v = 0 // warmup rows carry NaN before the indicator window fills
		}
		floats[name] = v
	}

	emaFast, err := decimal.NewFromString(field("ema_20"))
	if err != nil {
		return Bar{}, fmt.Errorf("invalid ema_20 value: %w", err)
	}
	emaSlow, err := decimal.NewFromString(field("ema_50"))
	if err != nil {
		return Bar{}, fmt.Errorf("invalid ema_50 value: %w", err)
	}

	return Bar{
		Timestamp:   timestamp,
		Open:        prices["open"],
		High:        prices["high"],
		Low:         prices["low"],
		Close:       prices["close"],
		Volume:      prices["volume"],
		ATR:         prices["atr_14"],
		RSI:         floats["rsi_14"],
		ADX:         floats["adx_14"],
		EMAFast:     emaFast,
		EMASlow:     emaSlow,
		VolumeRatio: floats["volume_ratio"],
		EMADist:     floats["dist_ema20"],
	}, nil
}

func parseFlag(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes":
		return true
	}
	return false
}

// parseTimestamp parses a timestamp from string.
// Supports Unix timestamps (seconds or milliseconds) and RFC3339.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ts > 10000000000 {
			return time.Unix(ts/1000, (ts%1000)*1000000), nil
		}
		return time.Unix(ts, 0), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// featureRow mirrors the parquet schema written by the feature pipeline.
// Pattern flags are a closed set, so they map to optional columns.
type featureRow struct {
	Timestamp   int64   `parquet:"time"`
	Open        float64 `parquet:"open"`
	High        float64 `parquet:"high"`
	Low         float64 `parquet:"low"`
	Close       float64 `parquet:"close"`
	Volume      float64 `parquet:"volume"`
	ATR         float64 `parquet:"atr_14"`
	RSI         float64 `parquet:"rsi_14"`
	ADX         float64 `parquet:"adx_14"`
	EMAFast     float64 `parquet:"ema_20"`
	EMASlow     float64 `parquet:"ema_50"`
	VolumeRatio float64 `parquet:"volume_ratio"`
	EMADist     float64 `parquet:"dist_ema20"`

	InsideBar          bool `parquet:"pattern_inside_bar,optional"`
	OutsideBar         bool `parquet:"pattern_outside_bar,optional"`
	BullishEngulfing   bool `parquet:"pattern_bullish_engulfing,optional"`
	BullishPin         bool `parquet:"pattern_bullish_pin,optional"`
	Hammer             bool `parquet:"pattern_hammer,optional"`
	MorningStar        bool `parquet:"pattern_morning_star,optional"`
	ThreeWhiteSoldiers bool `parquet:"pattern_three_white_soldiers,optional"`
	Breakout20         bool `parquet:"pattern_breakout_20,optional"`
	Breakout10         bool `parquet:"pattern_breakout_10,optional"`
	RangeExpansion     bool `parquet:"pattern_range_expansion,optional"`
	HaramiBull         bool `parquet:"pattern_harami_bull,optional"`
	TweezerBottom      bool `parquet:"pattern_tweezer_bottom,optional"`
	MarubozuBull       bool `parquet:"pattern_marubozu_bull,optional"`
	BearishEngulfing   bool `parquet:"pattern_bearish_engulfing,optional"`
	BearishPin         bool `parquet:"pattern_bearish_pin,optional"`
	ShootingStar       bool `parquet:"pattern_shooting_star,optional"`
	EveningStar        bool `parquet:"pattern_evening_star,optional"`
	ThreeBlackCrows    bool `parquet:"pattern_three_black_crows,optional"`
	Breakdown20        bool `parquet:"pattern_breakdown_20,optional"`
	Breakdown10        bool `parquet:"pattern_breakdown_10,optional"`
	HaramiBear         bool `parquet:"pattern_harami_bear,optional"`
	TweezerTop         bool `parquet:"pattern_tweezer_top,optional"`
	MarubozuBear       bool `parquet:"pattern_marubozu_bear,optional"`
}

var parquetPatterns = []struct {
	name string
	get  func(featureRow) bool
}{
	{"pattern_inside_bar", func(r featureRow) bool { return r.InsideBar }},
	{"pattern_outside_bar", func(r featureRow) bool { return r.OutsideBar }},
	{"pattern_bullish_engulfing", func(r featureRow) bool { return r.BullishEngulfing }},
	{"pattern_bullish_pin", func(r featureRow) bool { return r.BullishPin }},
	{"pattern_hammer", func(r featureRow) bool { return r.Hammer }},
	{"pattern_morning_star", func(r featureRow) bool { return r.MorningStar }},
	{"pattern_three_white_soldiers", func(r featureRow) bool { return r.ThreeWhiteSoldiers }},
	{"pattern_breakout_20", func(r featureRow) bool { return r.Breakout20 }},
	{"pattern_breakout_10", func(r featureRow) bool { return r.Breakout10 }},
	{"pattern_range_expansion", func(r featureRow) bool { return r.RangeExpansion }},
	{"pattern_harami_bull", func(r featureRow) bool { return r.HaramiBull }},
	{"pattern_tweezer_bottom", func(r featureRow) bool { return r.TweezerBottom }},
	{"pattern_marubozu_bull", func(r featureRow) bool { return r.MarubozuBull }},
	{"pattern_bearish_engulfing", func(r featureRow) bool { return r.BearishEngulfing }},
	{"pattern_bearish_pin", func(r featureRow) bool { return r.BearishPin }},
	{"pattern_shooting_star", func(r featureRow) bool { return r.ShootingStar }},
	{"pattern_evening_star", func(r featureRow) bool { return r.EveningStar }},
	{"pattern_three_black_crows", func(r featureRow) bool { return r.ThreeBlackCrows }},
	{"pattern_breakdown_20", func(r featureRow) bool { return r.Breakdown20 }},
	{"pattern_breakdown_10", func(r featureRow) bool { return r.Breakdown10 }},
	{"pattern_harami_bear", func(r featureRow) bool { return r.HaramiBear }},
	{"pattern_tweezer_top", func(r featureRow) bool { return r.TweezerTop }},
	{"pattern_marubozu_bear", func(r featureRow) bool { return r.MarubozuBear }},
}

// LoadParquet loads a feature series from a parquet file written by the
// feature pipeline.
func (l *Loader) LoadParquet(filename, symbol string) (*Series, error) {
	rows, err := parquet.ReadFile[featureRow](filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}

	bars := make([]Bar, len(rows))
	patterns := make(map[string][]bool, len(parquetPatterns))
	for _, p := range parquetPatterns {
		patterns[p.name] = make([]bool, len(rows))
	}

	for i, row := range rows {
		ts := row.Timestamp
		var t time.Time
		if ts > 10000000000 {
			t = time.Unix(ts/1000, (ts%1000)*1000000)
		} else {
			t = time.Unix(ts, 0)
		}

		bars[i] = Bar{
			Timestamp:   t,
			Open:        decimal.NewFromFloat(row.Open),
			High:        decimal.NewFromFloat(row.High),
			Low:         decimal.NewFromFloat(row.Low),
			Close:       decimal.NewFromFloat(row.Close),
			Volume:      decimal.NewFromFloat(row.Volume),
			ATR:         decimal.NewFromFloat(row.ATR),
			RSI:         row.RSI,
			ADX:         row.ADX,
			EMAFast:     decimal.NewFromFloat(row.EMAFast),
			EMASlow:     decimal.NewFromFloat(row.EMASlow),
			VolumeRatio: row.VolumeRatio,
			EMADist:     row.EMADist,
		}
		for _, p := range parquetPatterns {
			patterns[p.name][i] = p.get(row)
		}
	}

	s := New(symbol, bars)
	for name, flags := range patterns {
		if err := s.SetPattern(name, flags); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Load dispatches on the file extension (.csv or .parquet).
func (l *Loader) Load(filename, symbol string) (*Series, error) {
	var s *Series
	var err error

	switch {
	case strings.HasSuffix(filename, ".parquet"):
		s, err = l.LoadParquet(filename, symbol)
	case strings.HasSuffix(filename, ".csv"):
		s, err = l.LoadCSV(filename, symbol)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filename)
	}
	if err != nil {
		return nil, err
	}

	logger.Component("loader").Symbol(symbol).Info("series loaded",
		"file", filename,
		"bars", s.Len(),
		"patterns", len(s.PatternNames()))
	return s, nil
}

// GenerateSample generates a synthetic feature series for demos and tests.
// The pattern column "pattern_sample" fires every 20th bar.
func (l *Loader) GenerateSample(symbol string, startTime time.Time, bars int, basePrice float64) *Series {
	out := make([]Bar, 0, bars)
	currentTime := startTime
	currentPrice := decimal.NewFromFloat(basePrice)
	flags := make([]bool, bars)

	for i := 0; i < bars; i++ {
		change := decimal.NewFromFloat((float64(i%10) - 5) * 0.001)
		open := currentPrice
		close := currentPrice.Add(currentPrice.Mul(change))
		high := decimal.Max(open, close).Mul(decimal.NewFromFloat(1.001))
		low := decimal.Min(open, close).Mul(decimal.NewFromFloat(0.999))

		out = append(out, Bar{
			Timestamp:   currentTime,
			Open:        open,
			High:        high,
			Low:         low,
			Close:       close,
			Volume:      decimal.NewFromFloat(1000 + float64(i%500)),
			ATR:         close.Mul(decimal.NewFromFloat(0.01)),
			RSI:         45 + float64(i%20),
			ADX:         15 + float64(i%25),
			EMAFast:     close,
			EMASlow:     open,
			VolumeRatio: 0.8 + float64(i%8)*0.1,
			EMADist:     float64(i%4) * 0.5,
		})

		if i%20 == 10 {
			flags[i] = true
		}

		currentTime = currentTime.Add(1 * time.Hour)
		currentPrice = close
	}

	s := New(symbol, out)
	// flags is allocated bar-aligned above, so this cannot fail.
	_ = s.SetPattern("pattern_sample", flags)
	return s
}
