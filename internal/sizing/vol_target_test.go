package sizing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/trendlab/internal/series"
)

func daily(t *testing.T, values []float64) *series.Series {
	t.Helper()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(values))
	for i := range values {
		times[i] = start.AddDate(0, 0, i)
	}
	s, err := series.New(times, values)
	require.NoError(t, err)
	return s
}

// noisyPrices alternates small up and down moves so volatility is well defined.
func noisyPrices(t *testing.T, n int) *series.Series {
	values := make([]float64, n)
	price := 100.0
	for i := range values {
		values[i] = price
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.995
		}
	}
	return daily(t, values)
}

func constantForecast(t *testing.T, prices *series.Series, level float64) *series.Series {
	t.Helper()
	values := make([]float64, prices.Len())
	for i := range values {
		values[i] = level
	}
	fc, err := prices.WithValues(values)
	require.NoError(t, err)
	return fc
}

func TestNewVolTargetSizerValidation(t *testing.T) {
	tests := []struct {
		name      string
		volTarget float64
		lookback  int
		wantErr   bool
	}{
		{name: "valid", volTarget: 0.25, lookback: 25, wantErr: false},
		{name: "zero target", volTarget: 0, lookback: 25, wantErr: true},
		{name: "negative target", volTarget: -0.1, lookback: 25, wantErr: true},
		{name: "zero lookback", volTarget: 0.25, lookback: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVolTargetSizer(tt.volTarget, tt.lookback)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVolatilityIsAnnualized(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.25, 10)
	require.NoError(t, err)

	prices := noisyPrices(t, 60)
	vol := sizer.Volatility(prices)

	raw := prices.PctChange().EWMAStd(10)
	for i := 0; i < vol.Len(); i++ {
		if math.IsNaN(raw.Value(i)) {
			assert.True(t, math.IsNaN(vol.Value(i)))
			continue
		}
		assert.InDelta(t, raw.Value(i)*math.Sqrt(AnnualizationPeriods), vol.Value(i), 1e-12)
	}
}

func TestSizeFormula(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.20, 10)
	require.NoError(t, err)

	prices := noisyPrices(t, 60)
	capital := 100000.0
	forecast := constantForecast(t, prices, 10)

	positions, err := sizer.Size(forecast, prices, capital)
	require.NoError(t, err)

	vol := sizer.Volatility(prices)
	i := 40
	expected := 0.20 * capital / (vol.Value(i) * prices.Value(i))
	assert.InDelta(t, expected, positions.Value(i), 1e-9)
}

func TestSizeScalesLinearlyWithForecast(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.25, 10)
	require.NoError(t, err)

	prices := noisyPrices(t, 60)
	full, err := sizer.Size(constantForecast(t, prices, 20), prices, 50000)
	require.NoError(t, err)
	half, err := sizer.Size(constantForecast(t, prices, 10), prices, 50000)
	require.NoError(t, err)

	i := 45
	assert.InDelta(t, full.Value(i), 2*half.Value(i), 1e-9)
}

func TestSizeNegativeForecastShorts(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.25, 10)
	require.NoError(t, err)

	prices := noisyPrices(t, 60)
	positions, err := sizer.Size(constantForecast(t, prices, -10), prices, 50000)
	require.NoError(t, err)

	assert.Less(t, positions.Value(45), 0.0)
}

func TestSizeMissingVolatility(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.25, 10)
	require.NoError(t, err)

	prices := noisyPrices(t, 60)
	positions, err := sizer.Size(constantForecast(t, prices, 10), prices, 50000)
	require.NoError(t, err)

	// The first return and the first std estimate are undefined, so the
	// earliest positions must be missing rather than zero or huge.
	assert.True(t, math.IsNaN(positions.Value(0)))
	assert.True(t, math.IsNaN(positions.Value(1)))
	assert.False(t, math.IsNaN(positions.Value(30)))
}

func TestSizeZeroVolatility(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.25, 5)
	require.NoError(t, err)

	values := make([]float64, 30)
	for i := range values {
		values[i] = 100
	}
	prices := daily(t, values)

	positions, err := sizer.Size(constantForecast(t, prices, 10), prices, 50000)
	require.NoError(t, err)

	for i := 0; i < positions.Len(); i++ {
		assert.True(t, math.IsNaN(positions.Value(i)), "index %d", i)
	}
}

func TestSizeIndexMismatch(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.25, 10)
	require.NoError(t, err)

	prices := noisyPrices(t, 60)
	short := noisyPrices(t, 30)

	_, err = sizer.Size(constantForecast(t, short, 10), prices, 50000)
	assert.ErrorIs(t, err, ErrIndexMismatch)
}

func TestLeverage(t *testing.T) {
	sizer, err := NewVolTargetSizer(0.25, 10)
	require.NoError(t, err)

	prices := daily(t, []float64{100, 101, 102})
	positions, err := prices.WithValues([]float64{50, -100, 0})
	require.NoError(t, err)

	leverage, err := sizer.Leverage(positions, prices, 10000)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, leverage.Value(0), 1e-12)
	assert.InDelta(t, 1.01, leverage.Value(1), 1e-12)
	assert.InDelta(t, 0.0, leverage.Value(2), 1e-12)
}
