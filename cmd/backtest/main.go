// Package main provides the entry point for the walk-forward evaluation CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/trendlab/internal/backtest"
	"github.com/yourusername/trendlab/internal/config"
	"github.com/yourusername/trendlab/internal/database"
	"github.com/yourusername/trendlab/internal/forecast"
	"github.com/yourusername/trendlab/internal/logger"
	"github.com/yourusername/trendlab/internal/marketdata"
	"github.com/yourusername/trendlab/internal/metrics"
	"github.com/yourusername/trendlab/internal/portfolio"
	"github.com/yourusername/trendlab/internal/repository"
	"github.com/yourusername/trendlab/internal/series"
	"github.com/yourusername/trendlab/internal/sizing"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		symbol     = flag.String("symbol", "", "Symbol to evaluate (defaults to first configured)")
		output     = flag.String("output", "", "Override output directory for CSV exports")
		persist    = flag.Bool("persist", false, "Persist result summaries to the database")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := loadConfigWithSecrets(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	target := *symbol
	if target == "" {
		target = cfg.Data.Symbols[0]
	}
	outputDir := cfg.Backtest.OutputPath
	if *output != "" {
		outputDir = *output
	}

	prices := loadPrices(cfg, target, log)

	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		log.Fatalf("Invalid backtest config: %v", err)
	}

	results := runSweep(ctx, cfg, btConfig, prices, log)
	if len(results) == 0 {
		log.Fatal("No variation produced a result")
	}

	reportResults(results, outputDir, log)
	combineForecasts(results, log)

	if *persist {
		persistResults(ctx, cfg, target, results, log)
	}
}

// sweepResult pairs one EWMA variation with its walk-forward outcome.
type sweepResult struct {
	name    string
	result  *backtest.Result
	metrics *backtest.Metrics
}

func loadConfigWithSecrets(path string) *config.Config {
	boot := logrus.New()

	cfg, err := config.Load(path)
	if err != nil {
		boot.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			boot.Fatal("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			boot.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		boot.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func loadPrices(cfg *config.Config, symbol string, log *logrus.Logger) *series.Series {
	path := marketdata.CSVPath(cfg.Data.CSVDir, symbol, cfg.Data.Timeframe)
	candles, err := marketdata.LoadCSV(path)
	if err != nil {
		log.Fatalf("Failed to load candles from %s (run data-ingestion first): %v", path, err)
	}
	prices, err := marketdata.CloseSeries(candles)
	if err != nil {
		log.Fatalf("Bad candle data in %s: %v", path, err)
	}
	log.WithFields(logrus.Fields{"symbol": symbol, "bars": prices.Len()}).Info("Loaded price history")
	return prices
}

func runSweep(ctx context.Context, cfg *config.Config, btConfig backtest.Config, prices *series.Series, log *logrus.Logger) []sweepResult {
	var results []sweepResult

	for _, pair := range cfg.Strategy.Variations {
		signal, err := forecast.NewEWMACrossover(pair.Fast, pair.Slow)
		if err != nil {
			log.Fatalf("Invalid variation %d/%d: %v", pair.Fast, pair.Slow, err)
		}
		sizer, err := sizing.NewVolTargetSizer(cfg.Strategy.VolTarget, cfg.Strategy.VolLookback)
		if err != nil {
			log.Fatalf("Invalid sizing config: %v", err)
		}
		engine, err := backtest.NewEngine(btConfig, signal, sizer, log)
		if err != nil {
			log.Fatalf("Failed to build engine: %v", err)
		}

		started := time.Now()
		result, err := engine.Run(ctx, prices)
		metrics.BacktestDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			log.Fatalf("Walk-forward run failed for %s: %v", signal.Name(), err)
		}
		if result.Empty() {
			log.WithField("strategy", signal.Name()).Warn("History too short for a single window, skipping")
			continue
		}

		m := backtest.CalculateMetrics(result)
		if m != nil {
			metrics.RecordStrategyMetrics(m.StrategyID.String(), m.Strategy, m.SharpeRatio, m.MaxDrawdown)
		}
		results = append(results, sweepResult{name: signal.Name(), result: result, metrics: m})
	}
	return results
}

func reportResults(results []sweepResult, outputDir string, log *logrus.Logger) {
	for _, r := range results {
		fmt.Println(backtest.GenerateConsoleReport(r.metrics))
		if r.metrics == nil {
			continue
		}
		path := filepath.Join(outputDir, fmt.Sprintf("%s.csv", r.name))
		if err := backtest.GenerateCSVExport(r.metrics, path); err != nil {
			log.WithError(err).Warnf("Failed to export %s", path)
		}
	}
}

// combineForecasts prints the correlation structure across variations and the
// resulting diversification-adjusted combined forecast.
func combineForecasts(results []sweepResult, log *logrus.Logger) {
	if len(results) < 2 {
		return
	}

	forecasts := make(map[string]*series.Series, len(results))
	for _, r := range results {
		forecasts[r.name] = r.result.Forecasts
	}

	matrix, err := portfolio.Correlations(forecasts)
	if err != nil {
		log.WithError(err).Warn("Could not compute forecast correlations")
		return
	}

	fmt.Println(portfolio.Summary(matrix))
	metrics.RecordDiversification(portfolio.DiversificationMultiplier(matrix))

	combined, err := portfolio.Combine(forecasts, nil)
	if err != nil {
		log.WithError(err).Warn("Could not combine forecasts")
		return
	}
	last := combined.Len() - 1
	fmt.Printf("Combined forecast (%d bars), latest: %.2f at %s\n",
		combined.Len(), combined.Value(last), combined.Time(last).Format("2006-01-02"))
}

func persistResults(ctx context.Context, cfg *config.Config, symbol string, results []sweepResult, log *logrus.Logger) {
	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	repo := repository.NewPostgresResultRepository(db)
	for _, r := range results {
		if r.metrics == nil {
			continue
		}
		id, err := repo.SaveMetrics(ctx, symbol, r.metrics)
		if err != nil {
			log.WithError(err).Errorf("Failed to persist result for %s", r.name)
			continue
		}
		log.WithFields(logrus.Fields{"strategy": r.name, "id": id}).Info("Persisted result")
	}
}
