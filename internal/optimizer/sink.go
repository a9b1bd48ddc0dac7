package optimizer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aurelian-labs/aurelius/internal/logger"
)

// CSVSink persists ranked results and rejection diagnostics as CSV
// files, one pair per pattern/direction sweep.
type CSVSink struct {
	Dir string
}

// NewCSVSink creates a sink rooted at dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir}
}

var resultHeader = []string{
	"stop_loss_atr", "take_profit_atr", "max_hold_bars", "trend_condition",
	"rsi_min", "adx_min", "atr_pct_min", "atr_pct_max", "ema_dist_max", "volume_ratio_min",
	"trades", "win_rate", "profit_factor", "max_dd_pct",
	"total_pnl", "avg_pnl_per_trade", "avg_bars_held", "avg_mae", "avg_mfe",
}

// WriteResults writes the ranked survivors of a sweep. Returns the file path.
func (s *CSVSink) WriteResults(report *Report) (string, error) {
	if len(report.Results) == 0 {
		return "", fmt.Errorf("no results to write")
	}

	path := s.filePath(report, "optimization")
	file, err := s.create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(resultHeader); err != nil {
		return "", err
	}

	for _, result := range report.Results {
		summary := result.Summary

		profitFactor := summary.ProfitFactor.StringFixed(4)
		if summary.ProfitFactorUnbounded {
			profitFactor = "inf"
		}

		row := append(paramFields(result.Params),
			strconv.Itoa(summary.TotalTrades),
			summary.WinRate.StringFixed(2),
			profitFactor,
			summary.MaxDrawdownPct.StringFixed(2),
			summary.TotalPnL.StringFixed(4),
			summary.AvgPnLPerTrade.StringFixed(4),
			strconv.FormatFloat(summary.AvgBarsHeld, 'f', 2, 64),
			summary.AvgMAE.StringFixed(4),
			summary.AvgMFE.StringFixed(4),
		)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	logger.Component("sink").Info("results written", "path", path, "rows", len(report.Results))
	return path, nil
}

var diagnosticHeader = []string{
	"stop_loss_atr", "take_profit_atr", "max_hold_bars", "trend_condition",
	"rsi_min", "adx_min", "atr_pct_min", "atr_pct_max", "ema_dist_max", "volume_ratio_min",
	"why", "trades", "profit_factor", "drawdown_pct", "error",
}

// WriteDiagnostics writes the rejection diagnostics of a sweep.
func (s *CSVSink) WriteDiagnostics(report *Report) (string, error) {
	if len(report.Diagnostics) == 0 {
		return "", fmt.Errorf("no diagnostics to write")
	}

	path := s.filePath(report, "diagnostics")
	file, err := s.create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(diagnosticHeader); err != nil {
		return "", err
	}

	for _, diag := range report.Diagnostics {
		row := append(paramFields(diag.Params),
			string(diag.Reason),
			strconv.Itoa(diag.Trades),
			strconv.FormatFloat(diag.ProfitFactor, 'f', 4, 64),
			strconv.FormatFloat(diag.DrawdownPct, 'f', 2, 64),
			diag.Err,
		)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	logger.Component("sink").Info("diagnostics written", "path", path, "rows", len(report.Diagnostics))
	return path, nil
}

func (s *CSVSink) filePath(report *Report, suffix string) string {
	pattern := strings.TrimPrefix(report.Pattern, "pattern_")
	name := fmt.Sprintf("%s_%s_%s.csv", pattern, report.Direction, suffix)
	return filepath.Join(s.Dir, name)
}

func (s *CSVSink) create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, nil
}

func paramFields(p ParameterSet) []string {
	return []string{
		strconv.FormatFloat(p.StopLossATR, 'f', -1, 64),
		strconv.FormatFloat(p.TakeProfitATR, 'f', -1, 64),
		strconv.Itoa(p.MaxHoldBars),
		string(p.Trend),
		optionalField(p.RSIMin),
		optionalField(p.ADXMin),
		optionalField(p.ATRPctMin),
		optionalField(p.ATRPctMax),
		optionalField(p.EMADistMax),
		optionalField(p.VolumeRatioMin),
	}
}

func optionalField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
