// Package repository contains PostgreSQL persistence for candles and
// backtest results.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/trendlab/internal/backtest"
	"github.com/yourusername/trendlab/internal/marketdata"
)

// CandleRepository persists OHLCV bars
type CandleRepository interface {
	UpsertCandles(ctx context.Context, symbol, timeframe string, candles []marketdata.Candle) (int, error)
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Candle, error)
	GetLatestOpenTime(ctx context.Context, symbol, timeframe string) (time.Time, bool, error)
}

// ResultRepository persists walk-forward evaluation summaries
type ResultRepository interface {
	SaveMetrics(ctx context.Context, symbol string, metrics *backtest.Metrics) (uuid.UUID, error)
	GetByStrategyID(ctx context.Context, strategyID uuid.UUID) ([]*StoredResult, error)
	GetLatest(ctx context.Context, limit int) ([]*StoredResult, error)
}
