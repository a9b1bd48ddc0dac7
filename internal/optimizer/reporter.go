package optimizer

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reporter renders sweep reports as text
type Reporter struct{}

// NewReporter creates a new reporter
func NewReporter() *Reporter {
	return &Reporter{}
}

// GenerateReport renders the top ranked survivors plus the rejection
// histogram for one sweep.
func (r *Reporter) GenerateReport(report *Report, topN int) string {
	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════\n")
	sb.WriteString(fmt.Sprintf("  OPTIMIZATION: %s (%s)\n", report.Pattern, strings.ToUpper(string(report.Direction))))
	sb.WriteString("═══════════════════════════════════════════════════════\n\n")

	sb.WriteString(fmt.Sprintf("Tested:     %d combinations in %s\n", report.Tested, report.Elapsed.Round(10*time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Survivors:  %d\n", len(report.Results)))
	sb.WriteString(fmt.Sprintf("Rejected:   %d\n\n", len(report.Diagnostics)))

	if len(report.Results) > 0 {
		if topN > len(report.Results) {
			topN = len(report.Results)
		}
		sb.WriteString(fmt.Sprintf("🏆 TOP %d RESULTS\n", topN))
		sb.WriteString("───────────────────────────────────────────────────────\n")
		for i := 0; i < topN; i++ {
			result := report.Results[i]
			summary := result.Summary
			pf := "inf"
			if !summary.ProfitFactorUnbounded {
				pf = summary.ProfitFactor.StringFixed(2)
			}
			sb.WriteString(fmt.Sprintf("%2d. Trades=%d PF=%s WR=%.1f%% DD=%.2f%% | SL=%.1f TP=%.1f Hold=%s Trend=%s\n",
				i+1,
				summary.TotalTrades,
				pf,
				summary.WinRate.InexactFloat64(),
				summary.MaxDrawdownPct.InexactFloat64(),
				result.Params.StopLossATR,
				result.Params.TakeProfitATR,
				formatHold(result.Params.MaxHoldBars),
				formatTrend(string(result.Params.Trend)),
			))
		}
		sb.WriteString("\n")
	}

	if len(report.ReasonCounts) > 0 {
		sb.WriteString("🔍 REJECTION REASONS\n")
		sb.WriteString("───────────────────────────────────────────────────────\n")
		reasons := make([]string, 0, len(report.ReasonCounts))
		for reason := range report.ReasonCounts {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			count := report.ReasonCounts[Reason(reason)]
			pct := float64(count) / float64(len(report.Diagnostics)) * 100
			sb.WriteString(fmt.Sprintf("%-20s  %6d (%5.1f%%)\n", reason, count, pct))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("═══════════════════════════════════════════════════════\n")

	return sb.String()
}

func formatHold(bars int) string {
	if bars == 0 {
		return "none"
	}
	return fmt.Sprintf("%d", bars)
}

func formatTrend(trend string) string {
	if trend == "" {
		return "none"
	}
	return trend
}
