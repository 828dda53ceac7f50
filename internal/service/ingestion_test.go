package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/trendlab/internal/config"
	"github.com/yourusername/trendlab/internal/marketdata"
)

// fakeCandleRepo records upserts in memory.
type fakeCandleRepo struct {
	upserts map[string][]marketdata.Candle
}

func newFakeCandleRepo() *fakeCandleRepo {
	return &fakeCandleRepo{upserts: make(map[string][]marketdata.Candle)}
}

func (r *fakeCandleRepo) UpsertCandles(ctx context.Context, symbol, timeframe string, candles []marketdata.Candle) (int, error) {
	r.upserts[symbol] = append(r.upserts[symbol], candles...)
	return len(candles), nil
}

func (r *fakeCandleRepo) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Candle, error) {
	return r.upserts[symbol], nil
}

func (r *fakeCandleRepo) GetLatestOpenTime(ctx context.Context, symbol, timeframe string) (time.Time, bool, error) {
	stored := r.upserts[symbol]
	if len(stored) == 0 {
		return time.Time{}, false, nil
	}
	return stored[len(stored)-1].OpenTime, true, nil
}

func testDataConfig() config.DataConfig {
	return config.DataConfig{
		Symbols:   []string{"BTC/USDT", "ETH/USDT"},
		Timeframe: "1d",
		Limit:     100,
		CSVDir:    "./data",
	}
}

func testCandle() marketdata.Candle {
	return marketdata.Candle{
		OpenTime: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Open:     decimal.NewFromInt(100),
		High:     decimal.NewFromInt(102),
		Low:      decimal.NewFromInt(99),
		Close:    decimal.NewFromInt(101),
		Volume:   decimal.NewFromInt(1000),
	}
}

func TestHandleStreamCandle(t *testing.T) {
	repo := newFakeCandleRepo()
	svc := NewIngestionService(nil, repo, testDataConfig(), nil)

	require.NoError(t, svc.HandleStreamCandle("BTCUSDT", testCandle()))

	stored := repo.upserts["BTC/USDT"]
	require.Len(t, stored, 1, "exchange symbol maps back to the display pair")
	assert.True(t, stored[0].Close.Equal(decimal.NewFromInt(101)))
}

func TestHandleStreamCandleUnknownSymbol(t *testing.T) {
	repo := newFakeCandleRepo()
	svc := NewIngestionService(nil, repo, testDataConfig(), nil)

	require.NoError(t, svc.HandleStreamCandle("DOGEUSDT", testCandle()))
	assert.Len(t, repo.upserts["DOGEUSDT"], 1, "unknown symbols pass through unchanged")
}

func TestHandleStreamCandleWithoutRepository(t *testing.T) {
	svc := NewIngestionService(nil, nil, testDataConfig(), nil)
	assert.NoError(t, svc.HandleStreamCandle("BTCUSDT", testCandle()))
}

func TestIngestionMetricsString(t *testing.T) {
	m := IngestionMetrics{SymbolsProcessed: 2, CandlesFetched: 200, CandlesWritten: 200, Duration: time.Second}
	out := m.String()
	assert.Contains(t, out, "symbols=2")
	assert.Contains(t, out, "written=200")
}
