package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/aurelian-labs/aurelius/internal/backtesting"
	"github.com/aurelian-labs/aurelius/internal/config"
	"github.com/aurelian-labs/aurelius/internal/optimizer"
	"github.com/aurelian-labs/aurelius/internal/series"
	"github.com/aurelian-labs/aurelius/internal/strategy"
	"github.com/aurelian-labs/aurelius/internal/telemetry"
	"github.com/aurelian-labs/aurelius/internal/tui"
)

var (
	dataFile  = flag.String("data", "", "Path to feature file, .csv or .parquet (required)")
	symbol    = flag.String("symbol", "XAU-USD", "Instrument symbol")
	pattern   = flag.String("pattern", "", "Pattern column to optimize")
	allFlag   = flag.Bool("all-patterns", false, "Sweep every known pattern for the direction")
	direction = flag.String("direction", "long", "Trade direction: long or short")

	// Scheduling overrides; zero keeps the configured default
	seed       = flag.Int64("seed", 0, "Random seed for grid sampling")
	workers    = flag.Int("workers", 0, "Worker goroutines for the parallel mode")
	chunkSize  = flag.Int("chunk", 0, "Candidates per dispatched batch")
	maxCombos  = flag.Int("max-combos", 0, "Cap on tested combinations")
	sequential = flag.Bool("sequential", false, "Evaluate candidates sequentially")

	// Output options
	outDir      = flag.String("out", "optimization_results", "Directory for result CSV files")
	topN        = flag.Int("top", 10, "Ranked results to print")
	withTUI     = flag.Bool("tui", false, "Show live sweep progress")
	metricsAddr = flag.String("metrics-addr", "", "Address for the /metrics endpoint (empty disables it)")

	generateSample = flag.Bool("generate-sample", false, "Generate a synthetic series instead of loading from file")
	sampleBars     = flag.Int("sample-bars", 2000, "Number of bars to generate for sample data")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found")
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir, err := backtesting.ParseDirection(*direction)
	if err != nil {
		return err
	}
	if *pattern == "" && !*allFlag && !*generateSample {
		return fmt.Errorf("either -pattern or -all-patterns is required")
	}

	s, err := loadSeries()
	if err != nil {
		return err
	}

	if server := telemetry.NewServer(*metricsAddr); server != nil {
		if err := server.Start(); err != nil {
			return err
		}
		server.SetReady(true)
		defer server.Shutdown(context.Background())
		log.Printf("📡 Metrics: http://%s/metrics\n", *metricsAddr)
	}

	cfg := config.DefaultOptimizationConfig()
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}
	if *chunkSize != 0 {
		cfg.ChunkSize = *chunkSize
	}
	if *maxCombos != 0 {
		cfg.MaxCombinations = *maxCombos
	}
	cfg.Sequential = *sequential

	log.Printf("⚙️  Objectives: min trades %d, min PF %.2f, max DD %.1f%%\n",
		cfg.Objectives.MinTrades, cfg.Objectives.MinProfitFactor, cfg.Objectives.MaxDrawdownPct)
	log.Printf("⚙️  Schedule: cap %d, seed %d, workers %d, chunk %d, sequential %t\n",
		cfg.MaxCombinations, cfg.Seed, cfg.Workers, cfg.ChunkSize, cfg.Sequential)

	sink := optimizer.NewCSVSink(*outDir)
	reporter := optimizer.NewReporter()

	if *allFlag {
		return sweepAll(s, dir, cfg, sink, reporter)
	}
	return sweepOne(s, *pattern, dir, cfg, sink, reporter)
}

func loadSeries() (*series.Series, error) {
	loader := series.NewLoader()

	if *generateSample {
		log.Println("📊 Generating sample data...")
		s := loader.GenerateSample(*symbol, time.Now().Add(-24*time.Hour*90), *sampleBars, 2000)
		if *pattern == "" && !*allFlag {
			*pattern = "pattern_sample"
		}
		return s, nil
	}

	if *dataFile == "" {
		return nil, fmt.Errorf("either -data flag or -generate-sample flag is required")
	}

	log.Printf("📂 Loading data from %s...\n", *dataFile)
	s, err := loader.Load(*dataFile, *symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	log.Printf("✓ Loaded %d bars, %d pattern columns\n", s.Len(), len(s.PatternNames()))
	return s, nil
}

func sweepOne(s *series.Series, pattern string, dir backtesting.Direction,
	cfg *config.OptimizationConfig, sink *optimizer.CSVSink, reporter *optimizer.Reporter) error {

	opt, err := optimizer.New(s, pattern, dir, cfg)
	if err != nil {
		return err
	}

	var report *optimizer.Report
	if *withTUI {
		report, err = runWithTUI(opt, pattern, dir)
	} else {
		report, err = opt.Run()
	}
	if err != nil {
		return err
	}

	fmt.Println(reporter.GenerateReport(report, *topN))
	return persist(sink, report)
}

func sweepAll(s *series.Series, dir backtesting.Direction,
	cfg *config.OptimizationConfig, sink *optimizer.CSVSink, reporter *optimizer.Reporter) error {

	patterns := strategy.BullishPatterns()
	if dir == backtesting.Short {
		patterns = strategy.BearishPatterns()
	}

	reports := optimizer.SweepPatterns(s, patterns, dir, cfg)
	if len(reports) == 0 {
		return fmt.Errorf("no pattern produced a report")
	}

	for _, pattern := range patterns {
		report, ok := reports[pattern]
		if !ok {
			continue
		}
		fmt.Println(reporter.GenerateReport(report, *topN))
		if err := persist(sink, report); err != nil {
			return err
		}
	}
	return nil
}

// runWithTUI drives the sweep on a background goroutine and streams
// progress into the bubbletea program.
func runWithTUI(opt *optimizer.Optimizer, pattern string, dir backtesting.Direction) (*optimizer.Report, error) {
	p := tea.NewProgram(tui.NewModel(pattern, dir))

	opt.SetOnProgress(func(done, total int) {
		p.Send(tui.ProgressMsg{Done: done, Total: total})
	})

	go func() {
		report, err := opt.Run()
		if err != nil {
			p.Send(tui.ErrMsg{Err: err})
			return
		}
		p.Send(tui.DoneMsg{Report: report})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	model := final.(tui.Model)
	if model.Err() != nil {
		return nil, model.Err()
	}
	if model.Report() == nil {
		return nil, fmt.Errorf("sweep interrupted")
	}
	return model.Report(), nil
}

func persist(sink *optimizer.CSVSink, report *optimizer.Report) error {
	if len(report.Results) > 0 {
		path, err := sink.WriteResults(report)
		if err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		log.Printf("💾 Results: %s\n", path)
	}
	if len(report.Diagnostics) > 0 {
		path, err := sink.WriteDiagnostics(report)
		if err != nil {
			return fmt.Errorf("failed to write diagnostics: %w", err)
		}
		log.Printf("💾 Diagnostics: %s\n", path)
	}
	return nil
}
