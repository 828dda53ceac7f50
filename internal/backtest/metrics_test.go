package backtest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resultFromReturns builds a minimal result whose return series is the given
// values on a daily index.
func resultFromReturns(t *testing.T, returns []float64) *Result {
	t.Helper()
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(returns))
	for i := range returns {
		times[i] = start.AddDate(0, 0, i)
	}

	out := windowOutput{times: times, returns: returns}
	out.forecasts = make([]float64, len(returns))
	out.positions = make([]float64, len(returns))
	out.costs = make([]float64, len(returns))
	return assembleResult("EWMA_8_32", []windowOutput{out})
}

func TestCalculateMetrics(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, -0.01, 0.005}
	result := resultFromReturns(t, returns)

	m := CalculateMetrics(result)
	require.NotNil(t, m)

	mean := result.Returns.Mean()
	std := result.Returns.Std()
	assert.InDelta(t, mean/std*math.Sqrt(256), m.SharpeRatio, 1e-12)
	assert.InDelta(t, mean*256, m.AnnualizedReturn, 1e-12)

	expectedTotal := 1.0
	for _, r := range returns {
		expectedTotal *= 1 + r
	}
	assert.InDelta(t, expectedTotal-1, m.TotalReturn, 1e-12)

	assert.InDelta(t, 0.6, m.WinRate, 1e-12)
	assert.Equal(t, 5, m.TradeCount)
	assert.Equal(t, result.StrategyID, m.StrategyID)
	assert.Equal(t, "EWMA_8_32", m.Strategy)
}

func TestCalculateMetricsEmptyResult(t *testing.T) {
	result := assembleResult("EWMA_8_32", nil)
	assert.Nil(t, CalculateMetrics(result))
}

func TestCalculateMetricsZeroVariance(t *testing.T) {
	result := resultFromReturns(t, []float64{0.01, 0.01, 0.01})
	assert.Nil(t, CalculateMetrics(result), "Sharpe is undefined with zero variance")
}

func TestMaxDrawdown(t *testing.T) {
	// Cumulative curve: up to 1.1, down to 0.88, partial recovery.
	returns := []float64{0.10, -0.10, -0.10, 0.05}
	result := resultFromReturns(t, returns)

	m := CalculateMetrics(result)
	require.NotNil(t, m)

	// Peak 1.1, trough 1.1*0.9*0.9 = 0.891.
	assert.InDelta(t, (0.891-1.1)/1.1, m.MaxDrawdown, 1e-12)
	assert.LessOrEqual(t, m.MaxDrawdown, 0.0)
}

func TestProfitFactorNoLosses(t *testing.T) {
	result := resultFromReturns(t, []float64{0.01, 0.02, 0.03})
	m := CalculateMetrics(result)
	require.NotNil(t, m)
	assert.True(t, math.IsInf(m.ProfitFactor, 1))
}

func TestWinStats(t *testing.T) {
	winRate, avgWin, avgLoss, profitFactor := calculateWinStats([]float64{0.02, -0.01, 0.04, -0.03, 0})

	assert.InDelta(t, 0.4, winRate, 1e-12)
	assert.InDelta(t, 0.03, avgWin, 1e-12)
	assert.InDelta(t, -0.02, avgLoss, 1e-12)
	assert.InDelta(t, 1.5, profitFactor, 1e-12)
}

func TestConsoleReport(t *testing.T) {
	result := resultFromReturns(t, []float64{0.01, -0.005, 0.02})
	m := CalculateMetrics(result)

	report := GenerateConsoleReport(m)
	assert.Contains(t, report, "EWMA_8_32")
	assert.Contains(t, report, "Sharpe Ratio")

	nilReport := GenerateConsoleReport(nil)
	assert.Contains(t, nilReport, "No metrics")
}

func TestCSVExport(t *testing.T) {
	result := resultFromReturns(t, []float64{0.01, -0.005, 0.02})
	m := CalculateMetrics(result)
	require.NotNil(t, m)

	path := filepath.Join(t.TempDir(), "out", "EWMA_8_32.csv")
	require.NoError(t, GenerateCSVExport(m, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "metric,value\n"))
	assert.Contains(t, content, "strategy,EWMA_8_32")
	assert.Contains(t, content, "sharpe_ratio,")
}

func TestToJSON(t *testing.T) {
	result := resultFromReturns(t, []float64{0.01, -0.005, 0.02})
	m := CalculateMetrics(result)
	require.NotNil(t, m)

	encoded := m.ToJSON()
	assert.Contains(t, encoded, `"strategy":"EWMA_8_32"`)
	assert.Contains(t, encoded, `"sharpe_ratio"`)
}
