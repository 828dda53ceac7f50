package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ClientConfig holds exchange client settings. APIKey is optional; the kline
// endpoints are public, but an attached key raises the rate-limit tier.
type ClientConfig struct {
	APIURL   string
	APIKey   string
	CacheTTL time.Duration
	HTTP     HTTPClientConfig
}

// Client fetches candles from the Binance REST API. Responses are cached
// briefly so repeated sweeps over the same universe do not re-hit the
// exchange.
type Client struct {
	baseURL string
	apiKey  string
	http    *RateLimitedHTTPClient
	cache   *cache.Cache
	logger  *logrus.Logger
}

// NewClient creates an exchange client.
func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{
		baseURL: cfg.APIURL,
		apiKey:  cfg.APIKey,
		http:    NewRateLimitedHTTPClient(cfg.HTTP, logger),
		cache:   cache.New(ttl, ttl*2),
		logger:  logger,
	}
}

// FetchKlines retrieves up to limit bars for a display pair like "BTC/USDT".
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	key := fmt.Sprintf("%s|%s|%d", symbol, interval, limit)
	if cached, found := c.cache.Get(key); found {
		if candles, ok := cached.([]Candle); ok {
			return candles, nil
		}
	}

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, url.Values{
		"symbol":   {NormalizeSymbol(symbol)},
		"interval": {interval},
		"limit":    {fmt.Sprintf("%d", limit)},
	}.Encode())

	c.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": interval,
		"limit":    limit,
	}).Info("Fetching klines")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kline request failed: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("kline request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kline request returned %d: %s", resp.StatusCode, string(body))
	}

	candles, err := decodeKlines(resp.Body)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, candles, cache.DefaultExpiration)
	return candles, nil
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() error {
	return c.http.Close()
}

// decodeKlines parses the Binance kline array-of-arrays payload:
// [openTime, open, high, low, close, volume, closeTime, ...] with prices as
// strings and times as millisecond epochs.
func decodeKlines(r io.Reader) ([]Candle, error) {
	var rows [][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKline, err)
	}

	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("%w: row has %d fields", ErrMalformedKline, len(row))
		}

		var openMillis int64
		if err := json.Unmarshal(row[0], &openMillis); err != nil {
			return nil, fmt.Errorf("%w: open time: %v", ErrMalformedKline, err)
		}

		fields := make([]decimal.Decimal, 5)
		for i := 0; i < 5; i++ {
			var raw string
			if err := json.Unmarshal(row[i+1], &raw); err != nil {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedKline, i+1, err)
			}
			value, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedKline, i+1, err)
			}
			fields[i] = value
		}

		candles = append(candles, Candle{
			OpenTime: time.UnixMilli(openMillis).UTC(),
			Open:     fields[0],
			High:     fields[1],
			Low:      fields[2],
			Close:    fields[3],
			Volume:   fields[4],
		})
	}
	return candles, nil
}
