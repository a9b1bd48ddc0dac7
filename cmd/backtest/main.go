package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/joho/godotenv"

	"github.com/aurelian-labs/aurelius/internal/backtesting"
	"github.com/aurelian-labs/aurelius/internal/series"
	"github.com/aurelian-labs/aurelius/internal/strategy"
)

var (
	dataFile  = flag.String("data", "", "Path to feature file, .csv or .parquet (required)")
	symbol    = flag.String("symbol", "XAU-USD", "Instrument symbol")
	pattern   = flag.String("pattern", "", "Pattern column to trade (required)")
	direction = flag.String("direction", "long", "Trade direction: long or short")

	// Exit parameters
	stopATR   = flag.Float64("stop-atr", 2.0, "Stop loss distance in ATR multiples")
	targetATR = flag.Float64("target-atr", 3.0, "Take profit distance in ATR multiples")
	maxHold   = flag.Int("max-hold", 0, "Maximum bars to hold a position (0 = no limit)")
	breakeven = flag.Bool("breakeven", false, "Move the stop to entry once price reaches half the target")

	// Entry filters; NaN leaves a filter disabled
	trend       = flag.String("trend", "", "Trend condition (e.g. ema_fast_above_slow)")
	rsiMin      = flag.Float64("rsi-min", math.NaN(), "Minimum RSI at entry")
	rsiMax      = flag.Float64("rsi-max", math.NaN(), "Maximum RSI at entry")
	adxMin      = flag.Float64("adx-min", math.NaN(), "Minimum ADX at entry")
	atrPctMin   = flag.Float64("atr-pct-min", math.NaN(), "Minimum ATR percent at entry")
	atrPctMax   = flag.Float64("atr-pct-max", math.NaN(), "Maximum ATR percent at entry")
	emaDistMax  = flag.Float64("ema-dist-max", math.NaN(), "Maximum distance from the fast EMA")
	volRatioMin = flag.Float64("volume-ratio-min", math.NaN(), "Minimum volume ratio at entry")

	// Output options
	verbose        = flag.Bool("verbose", false, "Show detailed trade log")
	generateSample = flag.Bool("generate-sample", false, "Generate a synthetic series instead of loading from file")
	sampleBars     = flag.Int("sample-bars", 1000, "Number of bars to generate for sample data")
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
	printBanner()

	dir, err := backtesting.ParseDirection(*direction)
	if err != nil {
		return err
	}

	loader := series.NewLoader()

	var s *series.Series
	if *generateSample {
		log.Println("📊 Generating sample data...")
		s = loader.GenerateSample(*symbol, time.Now().Add(-24*time.Hour*30), *sampleBars, 2000)
		if *pattern == "" {
			*pattern = "pattern_sample"
		}
		log.Printf("✓ Generated %d bars\n", s.Len())
	} else {
		if *dataFile == "" {
			return fmt.Errorf("either -data flag or -generate-sample flag is required")
		}
		if *pattern == "" {
			return fmt.Errorf("-pattern flag is required")
		}

		log.Printf("📂 Loading data from %s...\n", *dataFile)
		s, err = loader.Load(*dataFile, *symbol)
		if err != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}
		log.Printf("✓ Loaded %d bars, %d pattern columns\n", s.Len(), len(s.PatternNames()))
	}

	if s.Len() == 0 {
		return fmt.Errorf("no data loaded")
	}

	startTime := s.Bars[0].Timestamp
	endTime := s.Bars[s.Len()-1].Timestamp
	log.Printf("📅 Period: %s to %s (%s)\n",
		startTime.Format("2006-01-02"),
		endTime.Format("2006-01-02"),
		endTime.Sub(startTime).Round(time.Hour))

	count, err := s.PatternCount(*pattern)
	if err != nil {
		return err
	}
	log.Printf("🕯  Pattern %s fires on %d of %d bars\n", *pattern, count, s.Len())

	spec := strategy.Spec{
		Pattern:        *pattern,
		Trend:          strategy.TrendCondition(*trend),
		RSIMin:         optional(*rsiMin),
		RSIMax:         optional(*rsiMax),
		ADXMin:         optional(*adxMin),
		ATRPctMin:      optional(*atrPctMin),
		ATRPctMax:      optional(*atrPctMax),
		EMADistMax:     optional(*emaDistMax),
		VolumeRatioMin: optional(*volRatioMin),
	}

	params := backtesting.Params{
		Direction:       dir,
		StopLossATR:     *stopATR,
		TakeProfitATR:   *targetATR,
		MaxHoldBars:     *maxHold,
		BreakevenAtHalf: *breakeven,
	}

	log.Println("\n⚙️  Backtest Configuration:")
	log.Printf("   Direction:        %s\n", dir)
	log.Printf("   Stop Loss:        %.2f x ATR\n", *stopATR)
	log.Printf("   Take Profit:      %.2f x ATR\n", *targetATR)
	log.Printf("   Max Hold Bars:    %s\n", holdLabel(*maxHold))
	log.Printf("   Breakeven:        %t\n", *breakeven)

	signal, err := strategy.BuildEntrySignal(s, spec)
	if err != nil {
		return fmt.Errorf("failed to build entry signal: %w", err)
	}

	engine, err := backtesting.NewEngine(s, params)
	if err != nil {
		return err
	}

	log.Println("🚀 Running backtest...")
	startRun := time.Now()

	trades, err := engine.Run(signal)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	duration := time.Since(startRun)
	log.Printf("✓ Backtest completed in %s\n\n", duration.Round(time.Millisecond))

	summary := backtesting.Summarize(trades)

	reporter := backtesting.NewReporter()
	fmt.Println(reporter.GenerateReport(summary, trades))

	if *verbose && len(trades) > 0 {
		fmt.Println(reporter.GenerateTradeLog(trades))
	}

	return nil
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func holdLabel(bars int) string {
	if bars == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", bars)
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════╗
║                                                       ║
║        AURELIUS BACKTESTING FRAMEWORK                 ║
║        Pattern Strategy Simulator                     ║
║                                                       ║
╚═══════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}
