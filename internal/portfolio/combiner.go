package portfolio

import (
	"fmt"
	"math"
	"strings"

	"github.com/yourusername/trendlab/internal/forecast"
	"github.com/yourusername/trendlab/internal/series"
)

// DiversificationMultiplier derives the forecast diversification multiplier
// (FDM) from a correlation matrix: 1/sqrt(1 - avg off-diagonal correlation),
// with a negative average floored at 0 so the multiplier never drops below 1,
// and an average at or above 1 returning exactly 1.0.
func DiversificationMultiplier(matrix *CorrelationMatrix) float64 {
	avg := matrix.AverageOffDiagonal()
	if avg < 0 {
		avg = 0
	}
	if avg >= 1 {
		return 1.0
	}
	return 1 / math.Sqrt(1-avg)
}

// Combine blends the named forecasts at each timestamp they all share.
// Without weights every forecast contributes equally; with weights each
// series contributes its weight after normalizing the weights to sum to 1,
// a missing weight defaulting to 1.0. The blend is clipped back to the
// forecast scale.
func Combine(forecasts map[string]*series.Series, weights map[string]float64) (*series.Series, error) {
	names := sortedNames(forecasts)
	if len(names) == 0 {
		return series.Empty(), nil
	}

	list := make([]*series.Series, len(names))
	for i, name := range names {
		list[i] = forecasts[name].DropNaN()
	}
	joined := series.InnerJoin(list)

	normalized, err := normalizeWeights(names, weights)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(joined.Times))
	for t := range joined.Times {
		sum := 0.0
		for i := range names {
			sum += joined.Columns[i][t] * normalized[i]
		}
		values[t] = math.Min(forecast.Cap, math.Max(-forecast.Cap, sum))
	}
	return series.FromJoined(joined.Times, values), nil
}

// normalizeWeights maps the weight set onto the sorted name order, filling
// missing entries with 1.0 and scaling the result to sum to 1. A nil weight
// map yields equal weights.
func normalizeWeights(names []string, weights map[string]float64) ([]float64, error) {
	out := make([]float64, len(names))
	total := 0.0
	for i, name := range names {
		w := 1.0
		if weights != nil {
			if explicit, ok := weights[name]; ok {
				w = explicit
			}
		}
		if w < 0 {
			return nil, fmt.Errorf("negative weight %v for %s", w, name)
		}
		out[i] = w
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("weights sum to zero")
	}
	for i := range out {
		out[i] /= total
	}
	return out, nil
}

// Summary renders the correlation matrix and FDM for console output.
func Summary(matrix *CorrelationMatrix) string {
	var builder strings.Builder
	builder.WriteString("Forecast Correlations\n")
	builder.WriteString("=====================\n")
	for i, name := range matrix.Names {
		builder.WriteString(fmt.Sprintf("%-14s", name))
		for j := range matrix.Names {
			builder.WriteString(fmt.Sprintf(" %6.3f", matrix.Values[i][j]))
		}
		builder.WriteString("\n")
	}
	builder.WriteString(fmt.Sprintf("Average Correlation: %.3f\n", matrix.AverageOffDiagonal()))
	builder.WriteString(fmt.Sprintf("Diversification Multiplier: %.3f\n", DiversificationMultiplier(matrix)))
	return builder.String()
}
