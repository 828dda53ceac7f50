package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCandles(t *testing.T, n int) []Candle {
	t.Helper()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, n)
	for i := range candles {
		base := decimal.NewFromInt(int64(100 + i))
		candles[i] = Candle{
			OpenTime: start.AddDate(0, 0, i),
			Open:     base,
			High:     base.Add(decimal.NewFromFloat(1.5)),
			Low:      base.Sub(decimal.NewFromFloat(0.5)),
			Close:    base.Add(decimal.NewFromInt(1)),
			Volume:   decimal.NewFromInt(int64(1000 * (i + 1))),
		}
	}
	return candles
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("BTC/USDT"))
	assert.Equal(t, "ETHUSDT", NormalizeSymbol("eth/usdt"))
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("BTCUSDT"))
}

func TestFileSymbol(t *testing.T) {
	assert.Equal(t, "BTC_USDT", FileSymbol("BTC/USDT"))
	assert.Equal(t, "BTC_USDT_1d.csv", filepath.Base(CSVPath("/tmp", "BTC/USDT", "1d")))
}

func TestCloseSeries(t *testing.T) {
	candles := sampleCandles(t, 3)
	prices, err := CloseSeries(candles)
	require.NoError(t, err)

	require.Equal(t, 3, prices.Len())
	assert.Equal(t, 101.0, prices.Value(0))
	assert.Equal(t, candles[2].OpenTime, prices.Time(2))
}

func TestCloseSeriesEmpty(t *testing.T) {
	_, err := CloseSeries(nil)
	assert.ErrorIs(t, err, ErrNoCandles)
}

func TestCloseSeriesUnordered(t *testing.T) {
	candles := sampleCandles(t, 3)
	candles[0], candles[2] = candles[2], candles[0]

	_, err := CloseSeries(candles)
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	candles := sampleCandles(t, 5)
	path := CSVPath(t.TempDir(), "BTC/USDT", "1d")

	require.NoError(t, SaveCSV(path, candles))
	loaded, err := LoadCSV(path)
	require.NoError(t, err)

	require.Len(t, loaded, 5)
	for i := range candles {
		assert.True(t, candles[i].OpenTime.Equal(loaded[i].OpenTime))
		assert.True(t, candles[i].Close.Equal(loaded[i].Close), "close at %d", i)
		assert.True(t, candles[i].Volume.Equal(loaded[i].Volume), "volume at %d", i)
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestLoadCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, SaveCSV(path, nil))

	_, err := LoadCSV(path)
	assert.ErrorIs(t, err, ErrNoCandles)
}

func TestDecodeKlines(t *testing.T) {
	payload := `[
		[1672531200000, "100.5", "102.0", "99.0", "101.25", "1500.7", 1672617599999, "0", 10, "0", "0", "0"],
		[1672617600000, "101.25", "105.0", "100.0", "104.5", "1800.2", 1672703999999, "0", 12, "0", "0", "0"]
	]`

	candles, err := decodeKlines(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].OpenTime)
	assert.Equal(t, "101.25", candles[0].Close.String())
	assert.Equal(t, "1500.7", candles[0].Volume.String())
	assert.Equal(t, "104.5", candles[1].Close.String())
}

func TestFetchKlinesSendsAPIKey(t *testing.T) {
	var gotKeys []string
	var gotQueries []url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKeys = append(gotKeys, r.Header.Get("X-MBX-APIKEY"))
		gotQueries = append(gotQueries, r.URL.Query())
		_, _ = w.Write([]byte(`[[1672531200000, "100.5", "102.0", "99.0", "101.25", "1500.7"]]`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIURL:   server.URL,
		APIKey:   "test-key",
		CacheTTL: time.Minute,
		HTTP:     DefaultHTTPClientConfig(),
	}, nil)
	defer client.Close()

	candles, err := client.FetchKlines(context.Background(), "BTC/USDT", "1d", 500)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, "101.25", candles[0].Close.String())

	require.Len(t, gotKeys, 1)
	assert.Equal(t, "test-key", gotKeys[0])
	assert.Equal(t, "BTCUSDT", gotQueries[0].Get("symbol"))
	assert.Equal(t, "1d", gotQueries[0].Get("interval"))
	assert.Equal(t, "500", gotQueries[0].Get("limit"))

	// A repeated fetch is served from cache without re-hitting the exchange.
	_, err = client.FetchKlines(context.Background(), "BTC/USDT", "1d", 500)
	require.NoError(t, err)
	assert.Len(t, gotKeys, 1)
}

func TestDecodeKlinesMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not an array", payload: `{"msg":"rate limit"}`},
		{name: "short row", payload: `[[1672531200000, "100.5"]]`},
		{name: "bad decimal", payload: `[[1672531200000, "abc", "1", "1", "1", "1"]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeKlines(strings.NewReader(tt.payload))
			assert.ErrorIs(t, err, ErrMalformedKline)
		})
	}
}
