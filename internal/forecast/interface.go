// Package forecast turns price history into normalized directional signals on
// the -20..20 scale, where 10 is the average absolute signal magnitude over
// the reference window.
package forecast

import (
	"errors"

	"github.com/yourusername/trendlab/internal/series"
)

// Custom errors
var (
	// ErrInsufficientData indicates a price window shorter than the slowest span.
	ErrInsufficientData = errors.New("insufficient price history for forecast")

	// ErrDegenerateSignal indicates a zero or non-finite reference magnitude,
	// which makes the forecast scaling factor undefined.
	ErrDegenerateSignal = errors.New("degenerate signal: reference magnitude is zero or non-finite")
)

// Forecast scale conventions.
const (
	// Target is the average absolute forecast magnitude by construction.
	Target = 10.0
	// Cap bounds every forecast to [-Cap, Cap].
	Cap = 20.0
)

// Source generates forecasts for an evaluation window, with the scaling
// constant derived only from a separate reference window so that evaluating
// test data never leaks its own statistics into the scale.
type Source interface {
	Name() string
	Generate(eval, ref *series.Series) (*series.Series, error)
	Parameters() map[string]interface{}
}
