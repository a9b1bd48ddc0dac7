// Package config holds the optimization configuration: parameter
// ranges, admission objectives, and scheduling knobs. Defaults mirror
// the standard sweep setup; environment variables override them.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Objectives are the admission thresholds a candidate must clear.
type Objectives struct {
	MinTrades       int
	MinProfitFactor float64
	MaxDrawdownPct  float64
}

// Ranges enumerates the candidate values for every tunable field.
// A nil entry in an optional-threshold list disables that filter.
type Ranges struct {
	StopLossATR   []float64
	TakeProfitATR []float64
	MaxHoldBars   []int // 0 means no time-based exit

	RSIMin         []*float64
	ADXMin         []*float64
	ATRPctMin      []*float64
	ATRPctMax      []*float64
	EMADistMax     []*float64
	VolumeRatioMin []*float64

	// Trend condition names per direction; "" disables the trend filter.
	TrendLong  []string
	TrendShort []string
}

// OptimizationConfig is everything the optimizer consumes.
type OptimizationConfig struct {
	Objectives      Objectives
	Ranges          Ranges
	MaxCombinations int
	Seed            int64

	Workers    int // worker count for the parallel mode
	ChunkSize  int // candidates per dispatched task batch
	Sequential bool
}

// ptr is a convenience for optional-threshold range literals.
func ptr(v float64) *float64 { return &v }

// DefaultOptimizationConfig returns the default sweep configuration
// with environment overrides applied.
func DefaultOptimizationConfig() *OptimizationConfig {
	cfg := &OptimizationConfig{
		Objectives: Objectives{
			MinTrades:       10,
			MinProfitFactor: 1.25,
			MaxDrawdownPct:  15.0,
		},
		Ranges: Ranges{
			StopLossATR:    []float64{1.5, 2.0, 2.5},
			TakeProfitATR:  []float64{2.0, 2.5, 3.0},
			MaxHoldBars:    []int{0, 10, 15},
			RSIMin:         []*float64{nil, ptr(50), ptr(55), ptr(60)},
			ADXMin:         []*float64{nil, ptr(20), ptr(25)},
			ATRPctMin:      []*float64{nil, ptr(0.5), ptr(0.8)},
			ATRPctMax:      []*float64{nil, ptr(1.5), ptr(2.0)},
			EMADistMax:     []*float64{nil, ptr(1.5), ptr(2.0)},
			VolumeRatioMin: []*float64{nil, ptr(1.0), ptr(1.2)},
			TrendLong:      []string{"", "ema_fast_above_slow", "close_above_ema_fast"},
			TrendShort:     []string{"", "ema_fast_below_slow", "close_below_ema_fast"},
		},
		MaxCombinations: 50000,
		Seed:            1,
		Workers:         runtime.NumCPU(),
		ChunkSize:       64,
	}

	cfg.Objectives.MinTrades = parseIntEnv("OPT_MIN_TRADES", cfg.Objectives.MinTrades)
	cfg.Objectives.MinProfitFactor = parseFloatEnv("OPT_MIN_PROFIT_FACTOR", cfg.Objectives.MinProfitFactor)
	cfg.Objectives.MaxDrawdownPct = parseFloatEnv("OPT_MAX_DRAWDOWN_PCT", cfg.Objectives.MaxDrawdownPct)
	cfg.MaxCombinations = parseIntEnv("OPT_MAX_COMBINATIONS", cfg.MaxCombinations)
	cfg.Seed = int64(parseIntEnv("OPT_SEED", int(cfg.Seed)))
	cfg.Workers = parseIntEnv("OPT_WORKERS", cfg.Workers)
	cfg.ChunkSize = parseIntEnv("OPT_CHUNK_SIZE", cfg.ChunkSize)

	if values, ok := parseFloatListEnv("OPT_STOP_LOSS_ATR_RANGE"); ok {
		cfg.Ranges.StopLossATR = values
	}
	if values, ok := parseFloatListEnv("OPT_TAKE_PROFIT_ATR_RANGE"); ok {
		cfg.Ranges.TakeProfitATR = values
	}
	if values, ok := parseIntListEnv("OPT_MAX_HOLD_BARS_RANGE"); ok {
		cfg.Ranges.MaxHoldBars = values
	}

	return cfg
}

// Validate sanity-checks the configuration.
func (c *OptimizationConfig) Validate() error {
	if c.Objectives.MinTrades < 0 {
		return fmt.Errorf("min trades must be non-negative, got %d", c.Objectives.MinTrades)
	}
	if c.Objectives.MinProfitFactor < 0 {
		return fmt.Errorf("min profit factor must be non-negative, got %g", c.Objectives.MinProfitFactor)
	}
	if c.Objectives.MaxDrawdownPct <= 0 {
		return fmt.Errorf("max drawdown pct must be positive, got %g", c.Objectives.MaxDrawdownPct)
	}
	if c.MaxCombinations <= 0 {
		return fmt.Errorf("max combinations must be positive, got %d", c.MaxCombinations)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// parseIntEnv parses an integer environment variable
func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseFloatEnv parses a float environment variable
func parseFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseFloatListEnv parses a comma-separated float list
func parseFloatListEnv(key string) ([]float64, bool) {
	value := os.Getenv(key)
	if value == "" {
		return nil, false
	}
	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, parsed)
	}
	return out, true
}

// parseIntListEnv parses a comma-separated integer list
func parseIntListEnv(key string) ([]int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return nil, false
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		parsed, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, false
		}
		out = append(out, parsed)
	}
	return out, true
}
