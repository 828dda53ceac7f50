package forecast

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

// trendingPrices rises steadily so the fast EWMA stays above the slow one.
func trendingPrices(t *testing.T, n int) *series.Series {
	values := make([]float64, n)
	price := 100.0
	for i := range values {
		values[i] = price
		price *= 1.01
	}
	return daily(t, values)
}

func TestNewEWMACrossoverValidation(t *testing.T) {
	tests := []struct {
		name    string
		fast    int
		slow    int
		wantErr bool
	}{
		{name: "valid pair", fast: 8, slow: 32, wantErr: false},
		{name: "fast equals slow", fast: 16, slow: 16, wantErr: true},
		{name: "fast exceeds slow", fast: 64, slow: 16, wantErr: true},
		{name: "zero span", fast: 0, slow: 32, wantErr: true},
		{name: "negative span", fast: -8, slow: 32, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEWMACrossover(tt.fast, tt.slow)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestName(t *testing.T) {
	g, err := NewEWMACrossover(8, 32)
	require.NoError(t, err)
	assert.Equal(t, "EWMA_8_32", g.Name())
}

func TestGenerateScaling(t *testing.T) {
	g, err := NewEWMACrossover(4, 16)
	require.NoError(t, err)

	prices := trendingPrices(t, 100)
	forecast, err := g.Generate(prices, prices)
	require.NoError(t, err)

	// Scaling by definition puts the mean absolute forecast at Target when
	// the evaluation window is its own reference.
	assert.InDelta(t, Target, forecast.MeanAbs(), 1e-9)
}

func TestGenerateClipsToCap(t *testing.T) {
	g, err := NewEWMACrossover(4, 16)
	require.NoError(t, err)

	prices := trendingPrices(t, 120)
	forecast, err := g.Generate(prices, prices)
	require.NoError(t, err)

	for i := 0; i < forecast.Len(); i++ {
		v := forecast.Value(i)
		if math.IsNaN(v) {
			continue
		}
		assert.LessOrEqual(t, v, Cap)
		assert.GreaterOrEqual(t, v, -Cap)
	}
}

func TestGeneratePositiveInUptrend(t *testing.T) {
	g, err := NewEWMACrossover(8, 32)
	require.NoError(t, err)

	prices := trendingPrices(t, 200)
	forecast, err := g.Generate(prices, prices)
	require.NoError(t, err)

	// After the averages settle the crossover must read long.
	for i := 50; i < forecast.Len(); i++ {
		assert.Greater(t, forecast.Value(i), 0.0, "index %d", i)
	}
}

func TestGenerateConstantPricesDegenerate(t *testing.T) {
	g, err := NewEWMACrossover(4, 16)
	require.NoError(t, err)

	values := make([]float64, 60)
	for i := range values {
		values[i] = 100
	}
	prices := daily(t, values)

	_, err = g.Generate(prices, prices)
	assert.ErrorIs(t, err, ErrDegenerateSignal)
}

func TestGenerateInsufficientReference(t *testing.T) {
	g, err := NewEWMACrossover(8, 32)
	require.NoError(t, err)

	short := trendingPrices(t, 16)
	long := trendingPrices(t, 64)

	_, err = g.Generate(long, short)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = g.Generate(series.Empty(), long)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestGenerateEvalShorterThanSlowSpan(t *testing.T) {
	// A test window shorter than the slow span is the normal walk-forward
	// case for long-span variations; only the reference needs full coverage.
	g, err := NewEWMACrossover(32, 128)
	require.NoError(t, err)

	eval := trendingPrices(t, 63)
	ref := trendingPrices(t, 252)

	forecast, err := g.Generate(eval, ref)
	require.NoError(t, err)
	require.Equal(t, 63, forecast.Len())
	for i := 0; i < forecast.Len(); i++ {
		assert.False(t, math.IsNaN(forecast.Value(i)), "index %d", i)
	}
}

func TestGenerateScaleComesFromReference(t *testing.T) {
	g, err := NewEWMACrossover(4, 16)
	require.NoError(t, err)

	eval := trendingPrices(t, 80)

	// A reference with twice the signal magnitude halves the forecast.
	weak := trendingPrices(t, 80)
	strongValues := make([]float64, 80)
	price := 100.0
	for i := range strongValues {
		strongValues[i] = price
		price *= 1.02
	}
	strong := daily(t, strongValues)

	fromWeak, err := g.Generate(eval, weak)
	require.NoError(t, err)
	fromStrong, err := g.Generate(eval, strong)
	require.NoError(t, err)

	for i := 20; i < eval.Len(); i++ {
		assert.Greater(t, fromWeak.Value(i), fromStrong.Value(i),
			"stronger reference magnitude must shrink the scaled forecast")
	}
}
