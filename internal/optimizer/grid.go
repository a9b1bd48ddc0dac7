package optimizer

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/aurelian-labs/aurelius/internal/backtesting"
	"github.com/aurelian-labs/aurelius/internal/config"
	"github.com/aurelian-labs/aurelius/internal/strategy"
)

// ParameterSet is one concrete combination of exit rules and filter
// thresholds under evaluation. Nil thresholds disable the filter.
// Immutable once constructed.
type ParameterSet struct {
	StopLossATR   float64
	TakeProfitATR float64
	MaxHoldBars   int // 0 means no time-based exit

	Trend          strategy.TrendCondition
	RSIMin         *float64
	ADXMin         *float64
	ATRPctMin      *float64
	ATRPctMax      *float64
	EMADistMax     *float64
	VolumeRatioMin *float64
}

// Spec translates the parameter set into a strategy spec for a pattern.
func (p ParameterSet) Spec(pattern string) strategy.Spec {
	return strategy.Spec{
		Pattern:        pattern,
		Trend:          p.Trend,
		RSIMin:         p.RSIMin,
		ADXMin:         p.ADXMin,
		ATRPctMin:      p.ATRPctMin,
		ATRPctMax:      p.ATRPctMax,
		EMADistMax:     p.EMADistMax,
		VolumeRatioMin: p.VolumeRatioMin,
	}
}

// EngineParams translates the parameter set into backtest engine params.
func (p ParameterSet) EngineParams(direction backtesting.Direction) backtesting.Params {
	return backtesting.Params{
		Direction:     direction,
		StopLossATR:   p.StopLossATR,
		TakeProfitATR: p.TakeProfitATR,
		MaxHoldBars:   p.MaxHoldBars,
	}
}

// overboughtRSIFloor: an RSI minimum at or above this value would only
// ever admit overbought bars, which is nonsensical for a floor.
const overboughtRSIFloor = 70

// GenerateGrid enumerates the Cartesian product of the configured
// ranges, pruning invalid combinations while iterating. Enumeration
// stops once twice the cap has been collected; an unweighted random
// sample then cuts the surviving set down to the cap, so huge grids are
// never fully materialized.
func GenerateGrid(r config.Ranges, direction backtesting.Direction, maxCombos int, rng *rand.Rand) ([]ParameterSet, error) {
	trendNames := r.TrendLong
	if direction == backtesting.Short {
		trendNames = r.TrendShort
	}
	trends := make([]strategy.TrendCondition, 0, len(trendNames))
	for _, name := range trendNames {
		tc := strategy.TrendCondition(name)
		if err := tc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid trend condition in ranges: %w", err)
		}
		trends = append(trends, tc)
	}

	grid := make([]ParameterSet, 0)

enumerate:
	for _, stop := range r.StopLossATR {
		for _, target := range r.TakeProfitATR {
			for _, hold := range r.MaxHoldBars {
				for _, trend := range trends {
					for _, rsiMin := range r.RSIMin {
						for _, adxMin := range r.ADXMin {
							for _, atrMin := range r.ATRPctMin {
								for _, atrMax := range r.ATRPctMax {
									for _, emaDist := range r.EMADistMax {
										for _, volMin := range r.VolumeRatioMin {
											if atrMin != nil && atrMax != nil && *atrMin >= *atrMax {
												continue
											}
											if rsiMin != nil && *rsiMin >= overboughtRSIFloor {
												continue
											}

											grid = append(grid, ParameterSet{
												StopLossATR:    stop,
												TakeProfitATR:  target,
												MaxHoldBars:    hold,
												Trend:          trend,
												RSIMin:         rsiMin,
												ADXMin:         adxMin,
												ATRPctMin:      atrMin,
												ATRPctMax:      atrMax,
												EMADistMax:     emaDist,
												VolumeRatioMin: volMin,
											})

											if len(grid) >= maxCombos*2 {
												break enumerate
											}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}

	if len(grid) > maxCombos {
		grid = sampleGrid(grid, maxCombos, rng)
	}

	return grid, nil
}

// sampleGrid draws an unweighted sample of size n, keeping the selected
// candidates in enumeration order so results stay reproducible.
func sampleGrid(grid []ParameterSet, n int, rng *rand.Rand) []ParameterSet {
	indices := rng.Perm(len(grid))[:n]
	sort.Ints(indices)

	sampled := make([]ParameterSet, n)
	for i, idx := range indices {
		sampled[i] = grid[idx]
	}
	return sampled
}
