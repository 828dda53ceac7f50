// Package service orchestrates candle acquisition and persistence.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/trendlab/internal/config"
	"github.com/yourusername/trendlab/internal/marketdata"
	"github.com/yourusername/trendlab/internal/metrics"
	"github.com/yourusername/trendlab/internal/repository"
)

// IngestionMetrics summarizes one ingestion pass.
type IngestionMetrics struct {
	SymbolsProcessed int
	CandlesFetched   int
	CandlesWritten   int
	Errors           int
	Duration         time.Duration
}

// String renders the metrics for log output.
func (m IngestionMetrics) String() string {
	return fmt.Sprintf("symbols=%d fetched=%d written=%d errors=%d duration=%s",
		m.SymbolsProcessed, m.CandlesFetched, m.CandlesWritten, m.Errors, m.Duration)
}

// IngestionService fetches candles from the exchange and persists them to
// both the CSV directory and the database. The CSV files are what the
// backtest tool reads; the database is the durable copy.
type IngestionService struct {
	client  *marketdata.Client
	candles repository.CandleRepository
	data    config.DataConfig
	logger  *logrus.Logger
}

// NewIngestionService creates an ingestion service. The candle repository may
// be nil, in which case only CSV files are written.
func NewIngestionService(client *marketdata.Client, candles repository.CandleRepository, data config.DataConfig, logger *logrus.Logger) *IngestionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &IngestionService{
		client:  client,
		candles: candles,
		data:    data,
		logger:  logger,
	}
}

// IngestSymbol fetches the configured history for one pair and persists it.
func (s *IngestionService) IngestSymbol(ctx context.Context, symbol string) (int, error) {
	started := time.Now()
	candles, err := s.client.FetchKlines(ctx, symbol, s.data.Timeframe, s.data.Limit)
	metrics.KlineFetchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.IngestionErrorsTotal.WithLabelValues(symbol, "rest").Inc()
		return 0, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}

	if err := s.persist(ctx, symbol, candles); err != nil {
		return 0, err
	}
	metrics.CandlesIngestedTotal.WithLabelValues(symbol, "rest").Add(float64(len(candles)))
	return len(candles), nil
}

// IngestAll runs IngestSymbol over the configured universe. Failures on
// individual symbols are logged and counted; the pass continues.
func (s *IngestionService) IngestAll(ctx context.Context) IngestionMetrics {
	started := time.Now()
	result := IngestionMetrics{}

	for _, symbol := range s.data.Symbols {
		if ctx.Err() != nil {
			break
		}
		fetched, err := s.IngestSymbol(ctx, symbol)
		result.SymbolsProcessed++
		if err != nil {
			result.Errors++
			s.logger.WithError(err).WithField("symbol", symbol).Error("Ingestion failed")
			continue
		}
		result.CandlesFetched += fetched
		result.CandlesWritten += fetched
	}

	result.Duration = time.Since(started)
	s.logger.WithFields(logrus.Fields{
		"symbols": result.SymbolsProcessed,
		"written": result.CandlesWritten,
		"errors":  result.Errors,
	}).Info("Ingestion pass complete")
	return result
}

// HandleStreamCandle is a marketdata.CandleHandler that appends a single
// closed bar arriving on the websocket stream.
func (s *IngestionService) HandleStreamCandle(exchangeSymbol string, candle marketdata.Candle) error {
	symbol := s.displaySymbol(exchangeSymbol)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.candles != nil {
		if _, err := s.candles.UpsertCandles(ctx, symbol, s.data.Timeframe, []marketdata.Candle{candle}); err != nil {
			metrics.IngestionErrorsTotal.WithLabelValues(symbol, "stream").Inc()
			return fmt.Errorf("failed to store stream candle: %w", err)
		}
	}

	metrics.CandlesIngestedTotal.WithLabelValues(symbol, "stream").Inc()
	s.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"time":   candle.OpenTime,
		"close":  candle.Close,
	}).Debug("Stored stream candle")
	return nil
}

// persist writes candles to the CSV directory and, when available, the
// database.
func (s *IngestionService) persist(ctx context.Context, symbol string, candles []marketdata.Candle) error {
	path := marketdata.CSVPath(s.data.CSVDir, symbol, s.data.Timeframe)
	if err := marketdata.SaveCSV(path, candles); err != nil {
		metrics.IngestionErrorsTotal.WithLabelValues(symbol, "csv").Inc()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if s.candles != nil {
		if _, err := s.candles.UpsertCandles(ctx, symbol, s.data.Timeframe, candles); err != nil {
			metrics.IngestionErrorsTotal.WithLabelValues(symbol, "db").Inc()
			return fmt.Errorf("failed to store candles for %s: %w", symbol, err)
		}
	}
	return nil
}

// displaySymbol maps an exchange symbol like BTCUSDT back onto the configured
// display pair. Unknown symbols pass through unchanged.
func (s *IngestionService) displaySymbol(exchangeSymbol string) string {
	for _, symbol := range s.data.Symbols {
		if marketdata.NormalizeSymbol(symbol) == exchangeSymbol {
			return symbol
		}
	}
	return exchangeSymbol
}
