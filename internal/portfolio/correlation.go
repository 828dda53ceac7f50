// Package portfolio combines multiple forecast variants into one diversified
// composite signal, weighting by the diversification benefit measured from
// forecast correlations.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/trendlab/internal/series"
)

// ErrNoOverlap indicates a forecast pair with fewer than two shared
// timestamps, over which a correlation is undefined.
var ErrNoOverlap = errors.New("forecast series share fewer than 2 timestamps")

// CorrelationMatrix is a square, symmetric matrix of pairwise Pearson
// correlations over named forecast series, unit diagonal.
type CorrelationMatrix struct {
	Names  []string
	Values [][]float64
}

// At returns the correlation between two named series.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, name := range m.Names {
		if name == a {
			ia = i
		}
		if name == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// AverageOffDiagonal returns the mean of the off-diagonal entries, 0 for a
// single-series matrix.
func (m *CorrelationMatrix) AverageOffDiagonal() float64 {
	n := len(m.Names)
	if n < 2 {
		return 0
	}
	sum := 0.0
	count := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sum += m.Values[i][j]
			count++
		}
	}
	return sum / float64(count)
}

// Correlations computes the pairwise correlation matrix of the named
// forecasts, each pair inner-joined on its shared timestamps. Names are
// sorted for a deterministic ordering.
func Correlations(forecasts map[string]*series.Series) (*CorrelationMatrix, error) {
	names := sortedNames(forecasts)
	if len(names) == 0 {
		return &CorrelationMatrix{}, nil
	}

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
		values[i][i] = 1
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			corr, err := pairCorrelation(forecasts[names[i]], forecasts[names[j]])
			if err != nil {
				return nil, fmt.Errorf("%s vs %s: %w", names[i], names[j], err)
			}
			values[i][j] = corr
			values[j][i] = corr
		}
	}
	return &CorrelationMatrix{Names: names, Values: values}, nil
}

// pairCorrelation is the Pearson correlation over the defined, shared stamps
// of two series.
func pairCorrelation(a, b *series.Series) (float64, error) {
	left, right := series.Align(a.DropNaN(), b.DropNaN())
	n := left.Len()
	if n < 2 {
		return 0, ErrNoOverlap
	}

	meanA, meanB := left.Mean(), right.Mean()
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := left.Value(i) - meanA
		db := right.Value(i) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, nil
	}
	return cov / math.Sqrt(varA*varB), nil
}

func sortedNames(forecasts map[string]*series.Series) []string {
	names := make([]string, 0, len(forecasts))
	for name := range forecasts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
