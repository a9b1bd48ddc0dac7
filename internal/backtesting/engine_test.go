package backtesting

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aurelian-labs/aurelius/internal/testutils"
)

func longParams() Params {
	return Params{
		Direction:     Long,
		StopLossATR:   2.0,
		TakeProfitATR: 3.0,
	}
}

func TestNewEngine(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)

	engine, err := NewEngine(s, longParams())
	testutils.AssertNoError(t, err, "NewEngine should not return error")
	testutils.AssertNotNil(t, engine, "Engine should not be nil")
	testutils.AssertEqual(t, 0, len(engine.Trades()), "Trades should be empty initially")
}

func TestNewEngine_InvalidParams(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)

	_, err := NewEngine(s, Params{Direction: Long, StopLossATR: 0, TakeProfitATR: 3.0})
	testutils.AssertError(t, err, "NewEngine should reject non-positive stop multiple")

	_, err = NewEngine(s, Params{Direction: "sideways", StopLossATR: 2.0, TakeProfitATR: 3.0})
	testutils.AssertError(t, err, "NewEngine should reject unknown direction")
}

func TestEngine_Run_NoData(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 0, 100, 1.0)

	engine, err := NewEngine(s, longParams())
	testutils.AssertNoError(t, err, "NewEngine should not return error")

	_, err = engine.Run([]bool{})
	testutils.AssertError(t, err, "Run should return error for empty series")
}

func TestEngine_Run_SignalLengthMismatch(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)

	engine, _ := NewEngine(s, longParams())
	_, err := engine.Run(make([]bool, 10))
	testutils.AssertError(t, err, "Run should reject a signal shorter than the series")
}

// Rising close after entry at bar 10 reaches the +3 ATR target at bar 13.
func TestEngine_TakeProfitExit(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 100, 100, 1.0)
	for i := 11; i < 100; i++ {
		price := 100 + float64(i-10)
		s.Bars[i] = testutils.MakeBar(i, price, price, price, price, 1.0)
	}

	engine, _ := NewEngine(s, longParams())
	trades, err := engine.Run(testutils.SignalAt(100, 10))
	testutils.AssertNoError(t, err, "Run should not return error")

	testutils.AssertEqual(t, 1, len(trades), "Should close exactly one trade")
	trade := trades[0]
	testutils.AssertEqual(t, 10, trade.EntryIdx, "Entry should be at the signal bar")
	testutils.AssertEqual(t, 13, trade.ExitIdx, "Target should be hit three bars later")
	testutils.AssertEqual(t, ExitTakeProfit, trade.ExitReason, "Exit reason should be take_profit")
	testutils.AssertDecimalEqual(t, 100, trade.EntryPrice, "Entry price should be the signal bar close")
	testutils.AssertDecimalEqual(t, 3.0, trade.PnL, "PnL should equal the target distance")
	testutils.AssertTrue(t, trade.Win(), "Take-profit trade should be a win")
}

// Falling close after entry at bar 10 hits the -2 ATR stop at bar 12.
func TestEngine_StopLossExit(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 100, 100, 1.0)
	for i := 11; i < 100; i++ {
		price := 100 - float64(i-10)
		s.Bars[i] = testutils.MakeBar(i, price, price, price, price, 1.0)
	}

	engine, _ := NewEngine(s, longParams())
	trades, err := engine.Run(testutils.SignalAt(100, 10))
	testutils.AssertNoError(t, err, "Run should not return error")

	testutils.AssertEqual(t, 1, len(trades), "Should close exactly one trade")
	trade := trades[0]
	testutils.AssertEqual(t, 12, trade.ExitIdx, "Stop should be hit two bars later")
	testutils.AssertEqual(t, ExitStopLoss, trade.ExitReason, "Exit reason should be stop_loss")
	testutils.AssertDecimalEqual(t, -2.0, trade.PnL, "PnL should equal the stop distance")
	testutils.AssertFalse(t, trade.Win(), "Stop-loss trade should be a loss")
}

// When the hold limit and the target level are reached on the same bar,
// the time exit wins.
func TestEngine_TimeExitPriority(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)
	s.Bars[12] = testutils.MakeBar(12, 105, 105, 105, 105, 1.0)

	params := longParams()
	params.MaxHoldBars = 2

	engine, _ := NewEngine(s, params)
	trades, err := engine.Run(testutils.SignalAt(20, 10))
	testutils.AssertNoError(t, err, "Run should not return error")

	testutils.AssertEqual(t, 1, len(trades), "Should close exactly one trade")
	trade := trades[0]
	testutils.AssertEqual(t, 12, trade.ExitIdx, "Should exit at the hold limit")
	testutils.AssertEqual(t, ExitTime, trade.ExitReason, "Time exit should take priority over the target")
	testutils.AssertDecimalEqual(t, 5.0, trade.PnL, "Time exit should fill at the bar close")
	testutils.AssertEqual(t, 2, trade.BarsHeld, "Bars held should equal the hold limit")
}

// A position that never reaches stop or target is force-closed on the
// final bar.
func TestEngine_EndOfDataForceClose(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)

	engine, _ := NewEngine(s, longParams())
	trades, err := engine.Run(testutils.SignalAt(20, 18))
	testutils.AssertNoError(t, err, "Run should not return error")

	testutils.AssertEqual(t, 1, len(trades), "Should close exactly one trade")
	trade := trades[0]
	testutils.AssertEqual(t, 18, trade.EntryIdx, "Entry should be at the signal bar")
	testutils.AssertEqual(t, 19, trade.ExitIdx, "Force close should land on the final bar")
	testutils.AssertEqual(t, ExitEndOfData, trade.ExitReason, "Exit reason should be end_of_data")
	testutils.AssertDecimalEqual(t, 0, trade.PnL, "Flat price should close flat")
}

// A signal on the final bar cannot produce a trade spanning at least one bar.
func TestEngine_NoEntryOnFinalBar(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)

	engine, _ := NewEngine(s, longParams())
	trades, err := engine.Run(testutils.SignalAt(20, 19))
	testutils.AssertNoError(t, err, "Run should not return error")
	testutils.AssertEqual(t, 0, len(trades), "Final-bar signal should open nothing")
}

func TestEngine_ShortDirection(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 100, 100, 1.0)
	for i := 11; i < 100; i++ {
		price := 100 - float64(i-10)
		s.Bars[i] = testutils.MakeBar(i, price, price, price, price, 1.0)
	}

	params := longParams()
	params.Direction = Short

	engine, _ := NewEngine(s, params)
	trades, err := engine.Run(testutils.SignalAt(100, 10))
	testutils.AssertNoError(t, err, "Run should not return error")

	testutils.AssertEqual(t, 1, len(trades), "Should close exactly one trade")
	trade := trades[0]
	testutils.AssertEqual(t, ExitTakeProfit, trade.ExitReason, "Falling price should hit a short target")
	testutils.AssertEqual(t, 13, trade.ExitIdx, "Target should be hit three bars later")
	testutils.AssertDecimalEqual(t, 3.0, trade.PnL, "Short PnL should be entry minus exit")
}

// Signals firing on every bar must never overlap: each new entry waits
// for the previous trade to close.
func TestEngine_NoOverlappingTrades(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 60, 100, 1.0)

	params := longParams()
	params.MaxHoldBars = 3

	signal := make([]bool, 60)
	for i := range signal {
		signal[i] = true
	}

	engine, _ := NewEngine(s, params)
	trades, err := engine.Run(signal)
	testutils.AssertNoError(t, err, "Run should not return error")
	testutils.AssertTrue(t, len(trades) > 1, "Dense signal should produce multiple trades")

	for i, trade := range trades {
		testutils.AssertTrue(t, trade.EntryIdx < trade.ExitIdx, "Entry index must precede exit index")
		testutils.AssertTrue(t, trade.ExitIdx <= 59, "Exit index must stay in range")
		if i > 0 {
			testutils.AssertTrue(t, trade.EntryIdx >= trades[i-1].ExitIdx,
				"A new trade must not open before the previous one closed")
		}
	}
}

// Once price travels halfway to the target, the stop ratchets to entry
// and a later pullback exits flat instead of at a loss.
func TestEngine_BreakevenRatchet(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)
	s.Bars[12] = testutils.MakeBar(12, 101.5, 101.5, 101.5, 101.5, 1.0)

	params := longParams()
	params.BreakevenAtHalf = true

	engine, _ := NewEngine(s, params)
	trades, err := engine.Run(testutils.SignalAt(20, 10))
	testutils.AssertNoError(t, err, "Run should not return error")

	testutils.AssertEqual(t, 1, len(trades), "Should close exactly one trade")
	trade := trades[0]
	testutils.AssertEqual(t, ExitStopLoss, trade.ExitReason, "Pullback should stop out at the ratcheted stop")
	testutils.AssertEqual(t, 13, trade.ExitIdx, "Stop should fire on the bar after the ratchet")
	testutils.AssertDecimalEqual(t, 0, trade.PnL, "Ratcheted stop should exit at breakeven")
}

func TestSummarize_EmptyTrades(t *testing.T) {
	summary := Summarize(nil)

	testutils.AssertEqual(t, 0, summary.TotalTrades, "Total trades should be zero")
	testutils.AssertTrue(t, summary.WinRate.IsZero(), "Win rate should be zero")
	testutils.AssertTrue(t, summary.ProfitFactor.IsZero(), "Profit factor should be zero")
	testutils.AssertFalse(t, summary.ProfitFactorUnbounded, "Profit factor should not be unbounded")
	testutils.AssertTrue(t, summary.TotalPnL.IsZero(), "Total PnL should be zero")
	testutils.AssertTrue(t, summary.MaxDrawdownPct.IsZero(), "Max drawdown should be zero")
	testutils.AssertNotNil(t, summary.ExitReasons, "Exit reason map should be allocated")
}

func closedTrade(pnl float64, reason ExitReason) Trade {
	return Trade{
		EntryIdx:   0,
		ExitIdx:    1,
		EntryPrice: decimal.NewFromInt(100),
		ExitPrice:  decimal.NewFromFloat(100 + pnl),
		Direction:  Long,
		PnL:        decimal.NewFromFloat(pnl),
		PnLPct:     decimal.NewFromFloat(pnl),
		BarsHeld:   1,
		ExitReason: reason,
	}
}

func TestSummarize_ProfitFactor(t *testing.T) {
	trades := []Trade{
		closedTrade(3.0, ExitTakeProfit),
		closedTrade(3.0, ExitTakeProfit),
		closedTrade(-2.0, ExitStopLoss),
	}

	summary := Summarize(trades)

	testutils.AssertEqual(t, 3, summary.TotalTrades, "Total trades should match")
	testutils.AssertEqual(t, 2, summary.WinningTrades, "Winning trades should match")
	testutils.AssertEqual(t, 1, summary.LosingTrades, "Losing trades should match")
	testutils.AssertDecimalEqual(t, 6.0, summary.GrossProfit, "Gross profit should sum the winners")
	testutils.AssertDecimalEqual(t, 2.0, summary.GrossLoss, "Gross loss should sum the losers absolutely")
	testutils.AssertDecimalEqual(t, 3.0, summary.ProfitFactor, "Profit factor should be profit over loss")
	testutils.AssertFalse(t, summary.ProfitFactorUnbounded, "Profit factor should be finite with a loser")
	testutils.AssertDecimalEqual(t, 4.0, summary.TotalPnL, "Total PnL should sum all trades")
	testutils.AssertTrue(t, summary.PnLStdDev.GreaterThan(decimal.Zero), "Mixed outcomes should have PnL dispersion")
	testutils.AssertEqual(t, 2, summary.ExitReasons[ExitTakeProfit], "Exit reason counts should match")
	testutils.AssertEqual(t, 1, summary.ExitReasons[ExitStopLoss], "Exit reason counts should match")
}

func TestSummarize_UnboundedProfitFactor(t *testing.T) {
	trades := []Trade{
		closedTrade(3.0, ExitTakeProfit),
		closedTrade(1.0, ExitTime),
	}

	summary := Summarize(trades)

	testutils.AssertTrue(t, summary.ProfitFactorUnbounded, "All winners should give an unbounded profit factor")
	testutils.AssertTrue(t, summary.ProfitFactor.IsZero(), "The finite field stays zero when unbounded")
}

func TestSummarize_WinRateBounds(t *testing.T) {
	trades := []Trade{
		closedTrade(3.0, ExitTakeProfit),
		closedTrade(-2.0, ExitStopLoss),
		closedTrade(0, ExitEndOfData),
	}

	summary := Summarize(trades)

	testutils.AssertTrue(t, summary.WinRate.GreaterThanOrEqual(decimal.Zero), "Win rate must not be negative")
	testutils.AssertTrue(t, summary.WinRate.LessThanOrEqual(decimal.NewFromInt(100)), "Win rate must not exceed 100")
	testutils.AssertEqual(t, 1, summary.WinningTrades, "Flat trade should not count as a win")
	testutils.AssertEqual(t, 1, summary.LosingTrades, "Flat trade should not count as a loss")
}

func TestSummarize_MaxDrawdown(t *testing.T) {
	// Equity curve: 5, 8, 4, 2, 6. Peak 8 at the second trade, trough 2,
	// drawdown 6 = 75% of the peak.
	trades := []Trade{
		closedTrade(5.0, ExitTakeProfit),
		closedTrade(3.0, ExitTakeProfit),
		closedTrade(-4.0, ExitStopLoss),
		closedTrade(-2.0, ExitStopLoss),
		closedTrade(4.0, ExitTakeProfit),
	}

	summary := Summarize(trades)

	testutils.AssertDecimalEqual(t, 6.0, summary.MaxDrawdown, "Max drawdown should be peak to trough")
	testutils.AssertDecimalEqual(t, 75.0, summary.MaxDrawdownPct, "Drawdown percent should be relative to the peak")
}

func TestEngine_MAEMFE(t *testing.T) {
	s := testutils.FlatSeries("XAU-USD", 20, 100, 1.0)
	// Dip to 99 then rally through the target at 103.
	s.Bars[11] = testutils.MakeBar(11, 100, 100, 99, 99.5, 1.0)
	s.Bars[12] = testutils.MakeBar(12, 99.5, 104, 99.5, 103.5, 1.0)

	engine, _ := NewEngine(s, longParams())
	trades, err := engine.Run(testutils.SignalAt(20, 10))
	testutils.AssertNoError(t, err, "Run should not return error")

	testutils.AssertEqual(t, 1, len(trades), "Should close exactly one trade")
	trade := trades[0]
	testutils.AssertEqual(t, ExitTakeProfit, trade.ExitReason, "Rally should hit the target")
	testutils.AssertDecimalEqual(t, -1.0, trade.MAE, "MAE should be the dip relative to entry")
	testutils.AssertDecimalEqual(t, 4.0, trade.MFE, "MFE should be the best high relative to entry")
}
