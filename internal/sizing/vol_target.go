// Package sizing converts forecasts into dollar exposures by targeting a
// fixed annualized volatility of portfolio returns.
package sizing

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/trendlab/internal/series"
)

// AnnualizationPeriods is the 256 trading periods/year convention; volatility
// annualizes by sqrt of this factor.
const AnnualizationPeriods = 256.0

// ErrIndexMismatch indicates forecast and price series with different lengths
// or timestamps.
var ErrIndexMismatch = errors.New("forecast and price series are not aligned")

// Sizer converts a forecast plus prices and capital into dollar positions.
type Sizer interface {
	Size(forecast, prices *series.Series, capital float64) (*series.Series, error)
}

// VolTargetSizer sizes positions so that a forecast of 10 (average conviction)
// carries the target annualized volatility:
//
//	position = (volTarget * capital) / (volatility * price) * forecast/10
type VolTargetSizer struct {
	VolTarget float64
	Lookback  int
}

// NewVolTargetSizer validates parameters and returns a sizer.
func NewVolTargetSizer(volTarget float64, lookback int) (*VolTargetSizer, error) {
	if volTarget <= 0 {
		return nil, fmt.Errorf("vol target must be positive, got %v", volTarget)
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("vol lookback must be positive, got %d", lookback)
	}
	return &VolTargetSizer{VolTarget: volTarget, Lookback: lookback}, nil
}

// Volatility estimates annualized volatility as the exponentially weighted
// standard deviation of period returns. Entries before the estimator has
// enough history are NaN, never fabricated.
func (s *VolTargetSizer) Volatility(prices *series.Series) *series.Series {
	std := prices.PctChange().EWMAStd(s.Lookback)
	return std.Map(func(v float64) float64 {
		return v * math.Sqrt(AnnualizationPeriods)
	})
}

// Size returns dollar exposures on the forecast's timestamp index. A zero or
// missing volatility estimate yields a missing position for that timestamp;
// callers treat missing entries as flat when netting returns.
func (s *VolTargetSizer) Size(forecast, prices *series.Series, capital float64) (*series.Series, error) {
	if err := checkAligned(forecast, prices); err != nil {
		return nil, err
	}

	volatility := s.Volatility(prices)
	values := make([]float64, forecast.Len())
	for i := range values {
		vol := volatility.Value(i)
		price := prices.Value(i)
		fc := forecast.Value(i)
		if math.IsNaN(vol) || vol == 0 || math.IsNaN(fc) || price == 0 {
			values[i] = math.NaN()
			continue
		}
		currencyVol := vol * price
		notional := s.VolTarget * capital / currencyVol
		values[i] = notional * fc / 10.0
	}
	return forecast.WithValues(values)
}

// Leverage reports |position * price| / capital per timestamp as a diagnostic.
func (s *VolTargetSizer) Leverage(positions, prices *series.Series, capital float64) (*series.Series, error) {
	if err := checkAligned(positions, prices); err != nil {
		return nil, err
	}
	if capital <= 0 {
		return nil, fmt.Errorf("capital must be positive, got %v", capital)
	}
	values := make([]float64, positions.Len())
	for i := range values {
		values[i] = math.Abs(positions.Value(i)*prices.Value(i)) / capital
	}
	return positions.WithValues(values)
}

func checkAligned(a, b *series.Series) error {
	if a.Len() != b.Len() {
		return fmt.Errorf("%w: %d vs %d observations", ErrIndexMismatch, a.Len(), b.Len())
	}
	for i := 0; i < a.Len(); i++ {
		if !a.Time(i).Equal(b.Time(i)) {
			return fmt.Errorf("%w: index %d", ErrIndexMismatch, i)
		}
	}
	return nil
}
