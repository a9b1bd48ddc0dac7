package backtesting

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurelian-labs/aurelius/internal/logger"
	"github.com/aurelian-labs/aurelius/internal/series"
	"github.com/aurelian-labs/aurelius/pkg/utils"
)

var hundred = decimal.NewFromInt(100)

// Engine simulates one strategy over a feature series. State per run is
// a FLAT / IN_POSITION machine with at most one open trade at any bar.
type Engine struct {
	series *series.Series
	params Params

	trades []Trade
	open   *Trade
}

// NewEngine creates an engine for one series and parameter set.
func NewEngine(s *series.Series, params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		series: s,
		params: params,
		trades: make([]Trade, 0),
	}, nil
}

// Run simulates the entry signal bar by bar and returns the closed
// trades. The signal must be index-aligned with the series; a mismatch
// is a caller error. A run with no trades returns an empty slice.
func (e *Engine) Run(entrySignal []bool) ([]Trade, error) {
	if e.series.Len() == 0 {
		return nil, fmt.Errorf("no bars to backtest")
	}
	if len(entrySignal) != e.series.Len() {
		return nil, fmt.Errorf("entry signal has %d entries for %d bars", len(entrySignal), e.series.Len())
	}

	e.trades = e.trades[:0]
	e.open = nil

	lastIdx := e.series.Len() - 1

	for i := 0; i <= lastIdx; i++ {
		bar := e.series.Bars[i]

		// Exit checks run before any new entry, so an exit and a fresh
		// entry may share a bar, but a position opened at bar i is never
		// exit-checked at bar i.
		if e.open != nil {
			e.checkExit(i, bar)
		}

		// Entries on the final bar are skipped: such a trade could never
		// span a bar before the forced end-of-data close.
		if e.open == nil && i < lastIdx && entrySignal[i] {
			e.openPosition(i, bar)
		}
	}

	if e.open != nil {
		last := e.series.Bars[lastIdx]
		e.closePosition(lastIdx, last.Close, ExitEndOfData)
	}

	logger.Component("backtesting").Debug("run complete",
		"direction", string(e.params.Direction),
		"trades", len(e.trades))

	return e.trades, nil
}

// Trades returns the closed trades of the last run.
func (e *Engine) Trades() []Trade {
	return e.trades
}

// checkExit applies the exit rules in fixed priority order: time exit,
// then stop loss, then take profit. At most one exit fires per bar.
// When no exit fires, the breakeven rule may ratchet the stop to the
// entry price; the stop is never loosened.
func (e *Engine) checkExit(idx int, bar series.Bar) {
	trade := e.open
	barsHeld := idx - trade.EntryIdx

	if e.params.MaxHoldBars > 0 && barsHeld >= e.params.MaxHoldBars {
		e.closePosition(idx, bar.Close, ExitTime)
		return
	}

	if e.params.Direction == Long {
		if bar.Low.LessThanOrEqual(trade.StopLoss) {
			e.closePosition(idx, trade.StopLoss, ExitStopLoss)
			return
		}
		if bar.High.GreaterThanOrEqual(trade.TakeProfit) {
			e.closePosition(idx, trade.TakeProfit, ExitTakeProfit)
			return
		}
		if e.params.BreakevenAtHalf && trade.StopLoss.LessThan(trade.EntryPrice) {
			halfway := trade.EntryPrice.Add(trade.TakeProfit.Sub(trade.EntryPrice).Div(decimal.NewFromInt(2)))
			if bar.High.GreaterThanOrEqual(halfway) {
				trade.StopLoss = trade.EntryPrice
			}
		}
	} else {
		if bar.High.GreaterThanOrEqual(trade.StopLoss) {
			e.closePosition(idx, trade.StopLoss, ExitStopLoss)
			return
		}
		if bar.Low.LessThanOrEqual(trade.TakeProfit) {
			e.closePosition(idx, trade.TakeProfit, ExitTakeProfit)
			return
		}
		if e.params.BreakevenAtHalf && trade.StopLoss.GreaterThan(trade.EntryPrice) {
			halfway := trade.EntryPrice.Sub(trade.EntryPrice.Sub(trade.TakeProfit).Div(decimal.NewFromInt(2)))
			if bar.Low.LessThanOrEqual(halfway) {
				trade.StopLoss = trade.EntryPrice
			}
		}
	}
}

// openPosition enters at the bar close with ATR-multiple stop and target.
func (e *Engine) openPosition(idx int, bar series.Bar) {
	entry := bar.Close
	stopDist := decimal.NewFromFloat(e.params.StopLossATR).Mul(bar.ATR)
	targetDist := decimal.NewFromFloat(e.params.TakeProfitATR).Mul(bar.ATR)

	var stop, target decimal.Decimal
	if e.params.Direction == Long {
		stop = entry.Sub(stopDist)
		target = entry.Add(targetDist)
	} else {
		stop = entry.Add(stopDist)
		target = entry.Sub(targetDist)
	}

	e.open = &Trade{
		ID:         uuid.New().String(),
		EntryIdx:   idx,
		EntryTime:  bar.Timestamp,
		EntryPrice: entry,
		Direction:  e.params.Direction,
		StopLoss:   stop,
		TakeProfit: target,
	}
}

// closePosition finalizes the open trade at the given bar and price.
func (e *Engine) closePosition(idx int, exitPrice decimal.Decimal, reason ExitReason) {
	trade := e.open

	trade.ExitIdx = idx
	trade.ExitTime = e.series.Bars[idx].Timestamp
	trade.ExitPrice = exitPrice
	trade.ExitReason = reason
	trade.BarsHeld = idx - trade.EntryIdx

	if trade.Direction == Long {
		trade.PnL = exitPrice.Sub(trade.EntryPrice)
		trade.PnLPct = utils.PercentChange(trade.EntryPrice, exitPrice)
	} else {
		trade.PnL = trade.EntryPrice.Sub(exitPrice)
		trade.PnLPct = utils.PercentChange(trade.EntryPrice, exitPrice).Neg()
	}

	trade.MAE, trade.MFE = e.excursions(trade)

	e.trades = append(e.trades, *trade)
	e.open = nil
}

// excursions scans the closed window's highs and lows relative to the
// entry price. Both values are percentages of the entry price.
func (e *Engine) excursions(trade *Trade) (mae, mfe decimal.Decimal) {
	window := e.series.Bars[trade.EntryIdx : trade.ExitIdx+1]

	minLow := window[0].Low
	maxHigh := window[0].High
	for _, bar := range window[1:] {
		minLow = utils.MinDecimal(minLow, bar.Low)
		maxHigh = utils.MaxDecimal(maxHigh, bar.High)
	}

	entry := trade.EntryPrice
	if trade.Direction == Long {
		mae = minLow.Sub(entry).Div(entry).Mul(hundred)
		mfe = maxHigh.Sub(entry).Div(entry).Mul(hundred)
	} else {
		mae = entry.Sub(maxHigh).Div(entry).Mul(hundred)
		mfe = entry.Sub(minLow).Div(entry).Mul(hundred)
	}
	return mae, mfe
}

// Summarize computes the aggregate statistics of a trade list. With
// zero trades every statistic is zero.
func Summarize(trades []Trade) *Summary {
	summary := &Summary{
		TotalTrades: len(trades),
		ExitReasons: make(map[ExitReason]int),
	}
	if len(trades) == 0 {
		return summary
	}

	var totalPnL, grossProfit, grossLoss decimal.Decimal
	var sumMAE, sumMFE decimal.Decimal
	var sumBars int
	pnls := make([]decimal.Decimal, 0, len(trades))

	for _, trade := range trades {
		pnls = append(pnls, trade.PnL)
		totalPnL = totalPnL.Add(trade.PnL)
		sumMAE = sumMAE.Add(trade.MAE)
		sumMFE = sumMFE.Add(trade.MFE)
		sumBars += trade.BarsHeld
		summary.ExitReasons[trade.ExitReason]++

		if trade.PnL.GreaterThan(decimal.Zero) {
			summary.WinningTrades++
			grossProfit = grossProfit.Add(trade.PnL)
		} else if trade.PnL.LessThan(decimal.Zero) {
			summary.LosingTrades++
			grossLoss = grossLoss.Add(trade.PnL.Abs())
		}
	}

	count := decimal.NewFromInt(int64(len(trades)))
	summary.WinRate = decimal.NewFromInt(int64(summary.WinningTrades)).Div(count).Mul(hundred)
	summary.GrossProfit = grossProfit
	summary.GrossLoss = grossLoss
	summary.TotalPnL = totalPnL
	summary.AvgPnLPerTrade = totalPnL.Div(count)
	summary.PnLStdDev = utils.StandardDeviation(pnls)
	summary.AvgBarsHeld = float64(sumBars) / float64(len(trades))
	summary.AvgMAE = sumMAE.Div(count)
	summary.AvgMFE = sumMFE.Div(count)

	if grossLoss.IsZero() {
		summary.ProfitFactorUnbounded = grossProfit.GreaterThan(decimal.Zero)
	} else {
		summary.ProfitFactor = grossProfit.Div(grossLoss)
	}

	summary.MaxDrawdown, summary.MaxDrawdownPct = maxDrawdown(trades)

	return summary
}

// maxDrawdown walks the cumulative-PnL equity curve and returns the
// deepest peak-to-trough decline, also as a percentage of the peak at
// that point.
func maxDrawdown(trades []Trade) (decimal.Decimal, decimal.Decimal) {
	var equity, peak, worst, peakAtWorst decimal.Decimal

	for i, trade := range trades {
		equity = equity.Add(trade.PnL)
		if i == 0 || equity.GreaterThan(peak) {
			peak = equity
		}

		drawdown := equity.Sub(peak)
		if drawdown.LessThan(worst) {
			worst = drawdown
			peakAtWorst = peak
		}
	}

	maxDD := worst.Abs()
	var maxDDPct decimal.Decimal
	if !peakAtWorst.IsZero() {
		maxDDPct = maxDD.Div(peakAtWorst).Mul(hundred).Abs()
	}
	return maxDD, maxDDPct
}
