package backtest

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/trendlab/internal/series"
)

// Metrics summarizes a completed out-of-sample return series.
type Metrics struct {
	SharpeRatio      float64   `json:"sharpe_ratio"`
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	WinRate          float64   `json:"win_rate"`
	AverageWin       float64   `json:"average_win"`
	AverageLoss      float64   `json:"average_loss"`
	ProfitFactor     float64   `json:"profit_factor"`
	StdDev           float64   `json:"std_dev"`
	TotalCosts       float64   `json:"total_costs"`
	TradeCount       int       `json:"trade_count"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	StrategyID       uuid.UUID `json:"strategy_id"`
	Strategy         string    `json:"strategy"`
}

// CalculateMetrics derives performance metrics from a completed result.
// It returns nil when the return series is empty or has zero variance, since
// a Sharpe ratio is undefined in that case; this is an expected outcome of a
// degenerate backtest, not an error.
func CalculateMetrics(result *Result) *Metrics {
	if result.Empty() {
		return nil
	}

	returns := result.Returns
	std := returns.Std()
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	mean := returns.Mean()

	m := &Metrics{
		SharpeRatio:      mean / std * math.Sqrt(256),
		AnnualizedReturn: mean * 256,
		StdDev:           std,
		TradeCount:       returns.Len(),
		StartDate:        returns.Time(0),
		EndDate:          returns.Time(returns.Len() - 1),
		StrategyID:       result.StrategyID,
		Strategy:         result.Strategy,
	}

	m.TotalReturn = result.Cumulative.Value(result.Cumulative.Len()-1) - 1
	m.MaxDrawdown = calculateMaxDrawdown(result.Cumulative)
	m.WinRate, m.AverageWin, m.AverageLoss, m.ProfitFactor = calculateWinStats(returns.Values())

	for i := 0; i < result.Costs.Len(); i++ {
		m.TotalCosts += result.Costs.Value(i)
	}
	return m
}

// ToJSON exports metrics to JSON.
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

// calculateMaxDrawdown returns the most negative excursion of the cumulative
// curve below its running peak.
func calculateMaxDrawdown(cumulative *series.Series) float64 {
	maxDD := 0.0
	peak := math.Inf(-1)
	for i := 0; i < cumulative.Len(); i++ {
		v := cumulative.Value(i)
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		drawdown := (v - peak) / peak
		if drawdown < maxDD {
			maxDD = drawdown
		}
	}
	return maxDD
}

// calculateWinStats returns win rate, average win, average loss and profit
// factor. Profit factor is +Inf when there are no losing periods.
func calculateWinStats(returns []float64) (winRate, avgWin, avgLoss, profitFactor float64) {
	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for _, r := range returns {
		if r > 0 {
			wins++
			winSum += r
		} else if r < 0 {
			losses++
			lossSum += r
		}
	}

	if len(returns) > 0 {
		winRate = float64(wins) / float64(len(returns))
	}
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
		profitFactor = winSum / math.Abs(lossSum)
	} else {
		profitFactor = math.Inf(1)
	}
	return winRate, avgWin, avgLoss, profitFactor
}
