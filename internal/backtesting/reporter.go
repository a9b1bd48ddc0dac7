package backtesting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reporter generates text reports from backtest results
type Reporter struct{}

// NewReporter creates a new reporter
func NewReporter() *Reporter {
	return &Reporter{}
}

// GenerateReport generates a formatted text report for one run
func (r *Reporter) GenerateReport(summary *Summary, trades []Trade) string {
	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════\n")
	sb.WriteString("              BACKTEST PERFORMANCE REPORT\n")
	sb.WriteString("═══════════════════════════════════════════════════════\n\n")

	// Trade Statistics
	sb.WriteString("📈 TRADE STATISTICS\n")
	sb.WriteString("───────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("Total Trades:         %d\n", summary.TotalTrades))
	sb.WriteString(fmt.Sprintf("Winning Trades:       %d\n", summary.WinningTrades))
	sb.WriteString(fmt.Sprintf("Losing Trades:        %d\n", summary.LosingTrades))
	sb.WriteString(fmt.Sprintf("Win Rate:             %.2f%%\n", summary.WinRate.InexactFloat64()))
	sb.WriteString(fmt.Sprintf("Avg Bars Held:        %.1f\n\n", summary.AvgBarsHeld))

	// Profit/Loss Analysis
	sb.WriteString("💰 PROFIT/LOSS ANALYSIS\n")
	sb.WriteString("───────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("Total PnL:            %s\n", summary.TotalPnL.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Avg PnL/Trade:        %s\n", summary.AvgPnLPerTrade.StringFixed(4)))
	sb.WriteString(fmt.Sprintf("PnL Std Dev:          %s\n", summary.PnLStdDev.StringFixed(4)))
	sb.WriteString(fmt.Sprintf("Gross Profit:         %s\n", summary.GrossProfit.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Gross Loss:           %s\n", summary.GrossLoss.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Profit Factor:        %s\n", formatProfitFactor(summary)))
	sb.WriteString(fmt.Sprintf("Max Drawdown:         %s (%.2f%%)\n", summary.MaxDrawdown.StringFixed(2), summary.MaxDrawdownPct.InexactFloat64()))
	sb.WriteString(fmt.Sprintf("Avg MAE:              %.2f%%\n", summary.AvgMAE.InexactFloat64()))
	sb.WriteString(fmt.Sprintf("Avg MFE:              %.2f%%\n\n", summary.AvgMFE.InexactFloat64()))

	// Exit Reasons
	if len(summary.ExitReasons) > 0 {
		sb.WriteString("🚪 EXIT REASONS\n")
		sb.WriteString("───────────────────────────────────────────────────────\n")
		reasons := make([]string, 0, len(summary.ExitReasons))
		for reason := range summary.ExitReasons {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			sb.WriteString(fmt.Sprintf("%-16s      %d\n", reason, summary.ExitReasons[ExitReason(reason)]))
		}
		sb.WriteString("\n")
	}

	// Recent Trades
	if len(trades) > 0 {
		sb.WriteString("📋 RECENT TRADES (Last 10)\n")
		sb.WriteString("───────────────────────────────────────────────────────\n")

		start := len(trades) - 10
		if start < 0 {
			start = 0
		}

		for i := start; i < len(trades); i++ {
			trade := trades[i]
			symbol := "📈"
			if trade.PnL.LessThan(decimal.Zero) {
				symbol = "📉"
			}
			sb.WriteString(fmt.Sprintf("%s %s %s: Entry=%s Exit=%s PnL=%s (%.2f%%) %s\n",
				symbol,
				trade.EntryTime.Format("01-02 15:04"),
				trade.Direction,
				trade.EntryPrice.StringFixed(2),
				trade.ExitPrice.StringFixed(2),
				trade.PnL.StringFixed(2),
				trade.PnLPct.InexactFloat64(),
				trade.ExitReason,
			))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("═══════════════════════════════════════════════════════\n")

	return sb.String()
}

// GenerateSummary generates a one-line summary
func (r *Reporter) GenerateSummary(summary *Summary) string {
	return fmt.Sprintf(
		"Trades: %d | Win Rate: %.2f%% | Profit Factor: %s | Max DD: %.2f%% | Total PnL: %s",
		summary.TotalTrades,
		summary.WinRate.InexactFloat64(),
		formatProfitFactor(summary),
		summary.MaxDrawdownPct.InexactFloat64(),
		summary.TotalPnL.StringFixed(2),
	)
}

// GenerateTradeLog generates a detailed trade log
func (r *Reporter) GenerateTradeLog(trades []Trade) string {
	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	sb.WriteString("                                TRADE LOG\n")
	sb.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	for i, trade := range trades {
		sb.WriteString(fmt.Sprintf("Trade #%d\n", i+1))
		sb.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		sb.WriteString(fmt.Sprintf("Direction:       %s\n", trade.Direction))
		sb.WriteString(fmt.Sprintf("Entry Time:      %s (bar %d)\n", trade.EntryTime.Format(time.RFC3339), trade.EntryIdx))
		sb.WriteString(fmt.Sprintf("Exit Time:       %s (bar %d)\n", trade.ExitTime.Format(time.RFC3339), trade.ExitIdx))
		sb.WriteString(fmt.Sprintf("Bars Held:       %d\n", trade.BarsHeld))
		sb.WriteString(fmt.Sprintf("Entry Price:     %s\n", trade.EntryPrice.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("Exit Price:      %s\n", trade.ExitPrice.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("Stop Loss:       %s\n", trade.StopLoss.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("Take Profit:     %s\n", trade.TakeProfit.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("Exit Reason:     %s\n", trade.ExitReason))
		sb.WriteString(fmt.Sprintf("MAE / MFE:       %.2f%% / %.2f%%\n", trade.MAE.InexactFloat64(), trade.MFE.InexactFloat64()))

		pnlStatus := "PROFIT ✓"
		if trade.PnL.LessThan(decimal.Zero) {
			pnlStatus = "LOSS ✗"
		}
		sb.WriteString(fmt.Sprintf("P&L:             %s (%.2f%%) [%s]\n",
			trade.PnL.StringFixed(2),
			trade.PnLPct.InexactFloat64(),
			pnlStatus))
		sb.WriteString("\n")
	}

	sb.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return sb.String()
}

func formatProfitFactor(summary *Summary) string {
	if summary.ProfitFactorUnbounded {
		return "inf"
	}
	return summary.ProfitFactor.StringFixed(2)
}
