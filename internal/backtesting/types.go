package backtesting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a simulated position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ParseDirection parses "long" or "short".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Long, Short:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid direction %q (want long or short)", s)
}

// ExitReason explains why a trade was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitTime       ExitReason = "time_exit"
	ExitEndOfData  ExitReason = "end_of_data"
)

// Params configures one engine run. Stop and target distances are ATR
// multiples anchored at the entry bar.
type Params struct {
	Direction       Direction
	StopLossATR     float64
	TakeProfitATR   float64
	MaxHoldBars     int  // 0 means no time-based exit
	BreakevenAtHalf bool // ratchet the stop to entry once price reaches half the target distance
}

// Validate checks the parameters before a run.
func (p Params) Validate() error {
	if p.Direction != Long && p.Direction != Short {
		return fmt.Errorf("invalid direction %q", p.Direction)
	}
	if p.StopLossATR <= 0 {
		return fmt.Errorf("stop_loss_atr must be positive, got %g", p.StopLossATR)
	}
	if p.TakeProfitATR <= 0 {
		return fmt.Errorf("take_profit_atr must be positive, got %g", p.TakeProfitATR)
	}
	if p.MaxHoldBars < 0 {
		return fmt.Errorf("max_hold_bars must be non-negative, got %d", p.MaxHoldBars)
	}
	return nil
}

// Trade is one simulated round trip. It is immutable after closing.
type Trade struct {
	ID         string
	EntryIdx   int
	EntryTime  time.Time
	EntryPrice decimal.Decimal
	Direction  Direction
	StopLoss   decimal.Decimal // may be ratcheted to entry by the breakeven rule
	TakeProfit decimal.Decimal

	ExitIdx    int
	ExitTime   time.Time
	ExitPrice  decimal.Decimal
	ExitReason ExitReason
	PnL        decimal.Decimal
	PnLPct     decimal.Decimal
	BarsHeld   int
	MAE        decimal.Decimal // worst excursion against the position, % of entry
	MFE        decimal.Decimal // best excursion in favor, % of entry
}

// Win reports whether the trade closed with positive PnL.
func (t Trade) Win() bool {
	return t.PnL.GreaterThan(decimal.Zero)
}

// Summary aggregates the statistics of one engine run. A run with zero
// trades yields a zero-valued summary.
type Summary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.Decimal // percent

	GrossProfit           decimal.Decimal
	GrossLoss             decimal.Decimal // absolute value
	ProfitFactor          decimal.Decimal
	ProfitFactorUnbounded bool // winners exist and losers do not

	MaxDrawdown    decimal.Decimal // on the cumulative-PnL curve
	MaxDrawdownPct decimal.Decimal // percent of the running peak

	TotalPnL       decimal.Decimal
	AvgPnLPerTrade decimal.Decimal
	PnLStdDev      decimal.Decimal
	AvgBarsHeld    float64
	AvgMAE         decimal.Decimal
	AvgMFE         decimal.Decimal

	ExitReasons map[ExitReason]int
}
