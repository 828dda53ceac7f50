package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/trendlab/internal/series"
)

// Result is the assembled out-of-sample record of one walk-forward run. All
// five series share one timestamp index covering every stamp where forecast,
// position and net return were simultaneously defined.
type Result struct {
	StrategyID uuid.UUID
	Strategy   string

	Forecasts  *series.Series
	Positions  *series.Series
	Returns    *series.Series
	Costs      *series.Series
	Cumulative *series.Series
}

// Empty reports whether no window produced any valid observation.
func (r *Result) Empty() bool {
	return r == nil || r.Returns == nil || r.Returns.Len() == 0
}

// windowOutput holds the valid observations of a single test window.
type windowOutput struct {
	times     []time.Time
	forecasts []float64
	positions []float64
	returns   []float64
	costs     []float64
}

// assembleResult concatenates per-window outputs in window-start order and
// derives the cumulative return curve.
func assembleResult(strategyName string, windows []windowOutput) *Result {
	var times []time.Time
	var forecasts, positions, returns, costs []float64
	for _, w := range windows {
		times = append(times, w.times...)
		forecasts = append(forecasts, w.forecasts...)
		positions = append(positions, w.positions...)
		returns = append(returns, w.returns...)
		costs = append(costs, w.costs...)
	}

	cumulative := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		acc *= 1 + r
		cumulative[i] = acc
	}

	return &Result{
		StrategyID: StrategyID(strategyName),
		Strategy:   strategyName,
		Forecasts:  series.FromJoined(times, forecasts),
		Positions:  series.FromJoined(times, positions),
		Returns:    series.FromJoined(times, returns),
		Costs:      series.FromJoined(times, costs),
		Cumulative: series.FromJoined(times, cumulative),
	}
}

// StrategyID derives a stable UUID from the rule name, so repeated runs of the
// same rule map to one identity in storage and metrics.
func StrategyID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

// validStamp reports whether all three observations are defined.
func validStamp(forecast, position, netReturn float64) bool {
	return !math.IsNaN(forecast) && !math.IsNaN(position) && !math.IsNaN(netReturn)
}
