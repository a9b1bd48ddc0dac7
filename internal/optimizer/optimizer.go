// Package optimizer sweeps a parameter grid over one pattern/direction
// pair, evaluating each candidate with the backtest engine and ranking
// the survivors of the admission filters.
package optimizer

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/aurelian-labs/aurelius/internal/backtesting"
	"github.com/aurelian-labs/aurelius/internal/config"
	"github.com/aurelian-labs/aurelius/internal/logger"
	"github.com/aurelian-labs/aurelius/internal/series"
	"github.com/aurelian-labs/aurelius/internal/strategy"
	"github.com/aurelian-labs/aurelius/internal/telemetry"
)

// Reason codes why a candidate was rejected or failed.
type Reason string

const (
	ReasonNoTrades           Reason = "no_trades"
	ReasonInsufficientTrades Reason = "insufficient_trades"
	ReasonPFFail             Reason = "pf_fail"
	ReasonDDFail             Reason = "dd_fail"
	ReasonError              Reason = "error"
)

// Result pairs a surviving parameter set with its performance summary.
// Never mutated after creation.
type Result struct {
	Params  ParameterSet
	Summary *backtesting.Summary
}

// Diagnostic pairs a rejected parameter set with the rejection reason
// and supporting values, for post-mortem analysis.
type Diagnostic struct {
	Params       ParameterSet
	Reason       Reason
	Trades       int
	ProfitFactor float64
	DrawdownPct  float64
	Err          string
}

// Outcome is the explicit result of one candidate evaluation: exactly
// one of Result and Diag is set.
type Outcome struct {
	Result *Result
	Diag   *Diagnostic
}

// Report is the output of one sweep.
type Report struct {
	Pattern   string
	Direction backtesting.Direction

	Results      []Result // ranked survivors
	Diagnostics  []Diagnostic
	ReasonCounts map[Reason]int
	Tested       int
	Elapsed      time.Duration
}

// evalContext is the immutable per-worker context: the shared read-only
// series plus the sweep-wide constants. Workers never write to it.
type evalContext struct {
	series     *series.Series
	pattern    string
	direction  backtesting.Direction
	objectives config.Objectives
}

// evaluate runs one candidate end to end. Any failure, including a
// panic in the evaluation path, is converted into a Diagnostic so a bad
// candidate can never abort the sweep.
func (c *evalContext) evaluate(params ParameterSet) (out Outcome) {
	telemetry.RecordCandidate(c.pattern)
	defer func() {
		if r := recover(); r != nil {
			telemetry.RecordEvaluationPanic()
			out = Outcome{Diag: &Diagnostic{
				Params: params,
				Reason: ReasonError,
				Err:    fmt.Sprintf("panic: %v", r),
			}}
		}
		switch {
		case out.Result != nil:
			telemetry.RecordSurvivor(c.pattern)
		case out.Diag != nil:
			telemetry.RecordRejection(c.pattern, string(out.Diag.Reason))
		}
	}()

	fail := func(err error) Outcome {
		return Outcome{Diag: &Diagnostic{Params: params, Reason: ReasonError, Err: err.Error()}}
	}

	signal, err := strategy.BuildEntrySignal(c.series, params.Spec(c.pattern))
	if err != nil {
		return fail(err)
	}

	engine, err := backtesting.NewEngine(c.series, params.EngineParams(c.direction))
	if err != nil {
		return fail(err)
	}

	trades, err := engine.Run(signal)
	if err != nil {
		return fail(err)
	}

	telemetry.RecordTradesSimulated(len(trades))

	if len(trades) == 0 {
		return Outcome{Diag: &Diagnostic{Params: params, Reason: ReasonNoTrades}}
	}

	summary := backtesting.Summarize(trades)

	if summary.TotalTrades < c.objectives.MinTrades {
		return Outcome{Diag: &Diagnostic{
			Params: params,
			Reason: ReasonInsufficientTrades,
			Trades: summary.TotalTrades,
		}}
	}

	if !summary.ProfitFactorUnbounded && summary.ProfitFactor.InexactFloat64() < c.objectives.MinProfitFactor {
		return Outcome{Diag: &Diagnostic{
			Params:       params,
			Reason:       ReasonPFFail,
			Trades:       summary.TotalTrades,
			ProfitFactor: summary.ProfitFactor.InexactFloat64(),
		}}
	}

	if summary.MaxDrawdownPct.InexactFloat64() > c.objectives.MaxDrawdownPct {
		return Outcome{Diag: &Diagnostic{
			Params:      params,
			Reason:      ReasonDDFail,
			Trades:      summary.TotalTrades,
			DrawdownPct: summary.MaxDrawdownPct.InexactFloat64(),
		}}
	}

	return Outcome{Result: &Result{Params: params, Summary: summary}}
}

// Optimizer evaluates every candidate parameter set against one
// pattern/direction pair.
type Optimizer struct {
	ctx evalContext
	cfg *config.OptimizationConfig
	log *logger.Logger

	onProgress func(done, total int)
}

// New creates an optimizer. It fails fast when the pattern column is
// absent from the series or never fires.
func New(s *series.Series, pattern string, direction backtesting.Direction, cfg *config.OptimizationConfig) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if direction != backtesting.Long && direction != backtesting.Short {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	count, err := s.PatternCount(pattern)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("pattern %q never occurs in the series", pattern)
	}

	log := logger.Component("optimizer").Pattern(pattern)
	log.Info("pattern frequency",
		"occurrences", count,
		"bars", s.Len())

	return &Optimizer{
		ctx: evalContext{
			series:     s,
			pattern:    pattern,
			direction:  direction,
			objectives: cfg.Objectives,
		},
		cfg: cfg,
		log: log,
	}, nil
}

// SetOnProgress sets a callback invoked as candidate evaluations finish.
func (o *Optimizer) SetOnProgress(fn func(done, total int)) {
	o.onProgress = fn
}

// Run generates the grid and evaluates every candidate, in parallel
// unless the configuration selects the sequential mode. Both modes
// produce identical ranked output for the same seed.
func (o *Optimizer) Run() (*Report, error) {
	start := time.Now()

	rng := rand.New(rand.NewSource(o.cfg.Seed))
	grid, err := GenerateGrid(o.cfg.Ranges, o.ctx.direction, o.cfg.MaxCombinations, rng)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Pattern:      o.ctx.pattern,
		Direction:    o.ctx.direction,
		ReasonCounts: make(map[Reason]int),
		Tested:       len(grid),
	}

	if len(grid) == 0 {
		o.log.Warn("no parameter combinations to test")
		report.Elapsed = time.Since(start)
		return report, nil
	}

	o.log.Info("sweep starting",
		"candidates", len(grid),
		"direction", string(o.ctx.direction),
		"workers", o.workers(),
		"sequential", o.sequential())

	var outcomes []Outcome
	if o.sequential() {
		outcomes = o.runSequential(grid)
	} else {
		outcomes = o.runParallel(grid)
	}

	for _, outcome := range outcomes {
		switch {
		case outcome.Result != nil:
			report.Results = append(report.Results, *outcome.Result)
		case outcome.Diag != nil:
			report.Diagnostics = append(report.Diagnostics, *outcome.Diag)
			report.ReasonCounts[outcome.Diag.Reason]++
		}
	}

	// Stable sort keeps equal-rank candidates in grid order, so the
	// ranking is reproducible across sequential and parallel runs.
	sort.SliceStable(report.Results, func(i, j int) bool {
		return rankLess(&report.Results[i], &report.Results[j])
	})

	report.Elapsed = time.Since(start)

	o.log.Sweep(map[string]any{
		"tested":    report.Tested,
		"survivors": len(report.Results),
		"rejected":  len(report.Diagnostics),
		"elapsed":   report.Elapsed.String(),
	})
	if len(report.Results) == 0 {
		o.log.Warn("no combinations passed filters", "reasons", reasonSummary(report.ReasonCounts))
	}

	return report, nil
}

func (o *Optimizer) sequential() bool {
	return o.cfg.Sequential || o.cfg.Workers == 1
}

func (o *Optimizer) workers() int {
	if o.sequential() {
		return 1
	}
	return o.cfg.Workers
}

// runSequential evaluates every candidate in grid order on the calling
// goroutine. Used for deterministic debugging and as the reference for
// the parallel mode.
func (o *Optimizer) runSequential(grid []ParameterSet) []Outcome {
	outcomes := make([]Outcome, len(grid))
	for i, params := range grid {
		outcomes[i] = o.ctx.evaluate(params)
		o.progress(i+1, len(grid))
	}
	return outcomes
}

// chunk is one batch of candidates dispatched to a worker. The start
// offset lets the aggregator place outcomes back at their grid index.
type chunk struct {
	start  int
	params []ParameterSet
}

type chunkResult struct {
	start    int
	outcomes []Outcome
}

// runParallel fans the grid out to a fixed pool of workers in chunks.
// Each worker owns an immutable copy of the evaluation context; all
// results flow back over a channel and are reassembled by grid index,
// so the outcome slice is identical to the sequential mode's.
func (o *Optimizer) runParallel(grid []ParameterSet) []Outcome {
	chunks := make([]chunk, 0, (len(grid)+o.cfg.ChunkSize-1)/o.cfg.ChunkSize)
	for start := 0; start < len(grid); start += o.cfg.ChunkSize {
		end := start + o.cfg.ChunkSize
		if end > len(grid) {
			end = len(grid)
		}
		chunks = append(chunks, chunk{start: start, params: grid[start:end]})
	}

	tasks := make(chan chunk)
	results := make(chan chunkResult)

	var wg sync.WaitGroup
	for w := 0; w < o.cfg.Workers; w++ {
		wg.Add(1)
		// Per-worker immutable context, established once at spawn.
		ctx := o.ctx
		go func() {
			defer wg.Done()
			for task := range tasks {
				outs := make([]Outcome, len(task.params))
				for i, params := range task.params {
					outs[i] = ctx.evaluate(params)
				}
				results <- chunkResult{start: task.start, outcomes: outs}
			}
		}()
	}

	go func() {
		for _, task := range chunks {
			tasks <- task
		}
		close(tasks)
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, len(grid))
	done := 0
	for result := range results {
		copy(outcomes[result.start:], result.outcomes)
		done += len(result.outcomes)
		o.progress(done, len(grid))
	}
	return outcomes
}

func (o *Optimizer) progress(done, total int) {
	if o.onProgress != nil {
		o.onProgress(done, total)
	}
}

// rankLess orders survivors by trade count, then profit factor, then
// win rate, then drawdown. More trades first for statistical
// confidence, then profitability, then consistency, then safety.
func rankLess(a, b *Result) bool {
	sa, sb := a.Summary, b.Summary

	if sa.TotalTrades != sb.TotalTrades {
		return sa.TotalTrades > sb.TotalTrades
	}
	if c := compareProfitFactor(sa, sb); c != 0 {
		return c > 0
	}
	if c := sa.WinRate.Cmp(sb.WinRate); c != 0 {
		return c > 0
	}
	return sa.MaxDrawdownPct.LessThan(sb.MaxDrawdownPct)
}

// compareProfitFactor treats an unbounded profit factor as greater than
// any finite value.
func compareProfitFactor(a, b *backtesting.Summary) int {
	switch {
	case a.ProfitFactorUnbounded && b.ProfitFactorUnbounded:
		return 0
	case a.ProfitFactorUnbounded:
		return 1
	case b.ProfitFactorUnbounded:
		return -1
	}
	return a.ProfitFactor.Cmp(b.ProfitFactor)
}

func reasonSummary(counts map[Reason]int) string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	out := ""
	for i, reason := range reasons {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", reason, counts[Reason(reason)])
	}
	return out
}

// SweepPatterns optimizes a list of patterns for one direction. A
// construction failure for one pattern is contained and logged; the
// sweep continues with the remaining patterns.
func SweepPatterns(s *series.Series, patterns []string, direction backtesting.Direction, cfg *config.OptimizationConfig) map[string]*Report {
	log := logger.Component("optimizer")
	reports := make(map[string]*Report, len(patterns))

	for _, pattern := range patterns {
		opt, err := New(s, pattern, direction, cfg)
		if err != nil {
			log.WithError(err).Pattern(pattern).Warn("skipping pattern")
			continue
		}
		report, err := opt.Run()
		if err != nil {
			log.WithError(err).Pattern(pattern).Warn("sweep failed")
			continue
		}
		reports[pattern] = report
	}

	return reports
}
