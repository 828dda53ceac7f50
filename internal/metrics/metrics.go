// Package metrics provides the centralized Prometheus registry for the
// trendlab tools.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	CandlesIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendlab",
		Name:      "candles_ingested_total",
		Help:      "Total number of candles written to storage",
	}, []string{"symbol", "source"})
	IngestionErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendlab",
		Name:      "ingestion_errors_total",
		Help:      "Total number of failed ingestion attempts",
	}, []string{"symbol", "source"})
	ForecastsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trendlab",
		Name:      "forecasts_generated_total",
		Help:      "Total number of forecast series generated",
	})
	WindowsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trendlab",
		Name:      "windows_skipped_total",
		Help:      "Total number of walk-forward windows skipped due to degenerate signals",
	})
)

// Gauge metrics
var (
	StrategySharpeRatio = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trendlab",
		Name:      "strategy_sharpe_ratio",
		Help:      "Out-of-sample Sharpe ratio per strategy variation",
	}, []string{"strategy_id", "strategy_name"})
	StrategyMaxDrawdown = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trendlab",
		Name:      "strategy_max_drawdown",
		Help:      "Out-of-sample maximum drawdown per strategy variation",
	}, []string{"strategy_id", "strategy_name"})
	DiversificationMultiplier = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trendlab",
		Name:      "diversification_multiplier",
		Help:      "Forecast diversification multiplier for the current variation set",
	})
)

// Histogram metrics
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trendlab",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of walk-forward runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	KlineFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trendlab",
		Name:      "kline_fetch_duration_seconds",
		Help:      "Duration of exchange kline fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// GetRegistry returns the global metrics registry, creating and populating it
// on first use.
func GetRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			CandlesIngestedTotal,
			IngestionErrorsTotal,
			ForecastsGeneratedTotal,
			WindowsSkippedTotal,
			StrategySharpeRatio,
			StrategyMaxDrawdown,
			DiversificationMultiplier,
			BacktestDuration,
			KlineFetchDuration,
		)
	})
	return registry
}

// Handler returns an HTTP handler that serves the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// Serve starts a metrics HTTP server in the background.
func Serve(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Metrics server stopped")
		}
	}()
	return server
}
