// Package marketdata acquires and persists OHLCV candles: a rate-limited
// exchange REST client, a websocket kline stream, and a CSV codec. The core
// packages never touch this package; they consume the close-price series it
// produces.
package marketdata

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/trendlab/internal/series"
)

// Custom errors
var (
	ErrNoCandles      = errors.New("no candles available")
	ErrMalformedKline = errors.New("malformed kline payload")
)

// Candle is one OHLCV bar. Prices arrive from the exchange as strings and are
// kept as decimals until a float series is explicitly requested.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// CloseSeries extracts the close prices as a timestamp-indexed series.
func CloseSeries(candles []Candle) (*series.Series, error) {
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	times := make([]time.Time, len(candles))
	values := make([]float64, len(candles))
	for i, c := range candles {
		times[i] = c.OpenTime
		values[i] = c.Close.InexactFloat64()
	}
	s, err := series.New(times, values)
	if err != nil {
		return nil, fmt.Errorf("candles are not chronological: %w", err)
	}
	return s, nil
}

// NormalizeSymbol converts a display pair like "BTC/USDT" into the exchange
// form "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// FileSymbol converts a display pair like "BTC/USDT" into the on-disk form
// "BTC_USDT".
func FileSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "_"))
}
