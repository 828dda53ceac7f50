package forecast

import (
	"fmt"
	"math"

	"github.com/yourusername/trendlab/internal/series"
)

// EWMACrossover generates forecasts from the spread between a fast and a slow
// exponentially weighted moving average of price.
type EWMACrossover struct {
	Fast int
	Slow int
}

// NewEWMACrossover validates the span pair and returns a generator.
func NewEWMACrossover(fast, slow int) (*EWMACrossover, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("spans must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast span %d must be shorter than slow span %d", fast, slow)
	}
	return &EWMACrossover{Fast: fast, Slow: slow}, nil
}

// Name identifies the rule variant, e.g. "EWMA_8_32".
func (g *EWMACrossover) Name() string {
	return fmt.Sprintf("EWMA_%d_%d", g.Fast, g.Slow)
}

// Parameters reports the rule configuration for tracking and export.
func (g *EWMACrossover) Parameters() map[string]interface{} {
	return map[string]interface{}{"fast": g.Fast, "slow": g.Slow}
}

// Generate produces a forecast series for eval, scaled by the mean absolute
// raw signal over ref and clipped to [-Cap, Cap]. Only the reference window
// must cover the slow span; the evaluation window may be shorter, its averages
// simply seed from its first bar. Passing the evaluation window as its own
// reference is allowed but reintroduces look-ahead bias; leakage-free
// operation requires ref to be the corresponding training window.
func (g *EWMACrossover) Generate(eval, ref *series.Series) (*series.Series, error) {
	if eval.Len() == 0 {
		return nil, fmt.Errorf("%w: evaluation window is empty", ErrInsufficientData)
	}
	if ref.Len() < g.Slow {
		return nil, fmt.Errorf("%w: reference window has %d observations, need %d", ErrInsufficientData, ref.Len(), g.Slow)
	}

	magnitude := g.rawSignal(ref).MeanAbs()
	if magnitude == 0 || math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateSignal, magnitude)
	}
	scale := Target / magnitude

	raw := g.rawSignal(eval)
	return raw.Map(func(v float64) float64 { return v * scale }).Clip(-Cap, Cap), nil
}

// rawSignal is the unscaled crossover: (fast EWMA - slow EWMA) / price.
func (g *EWMACrossover) rawSignal(prices *series.Series) *series.Series {
	fast := prices.EWMAMean(g.Fast)
	slow := prices.EWMAMean(g.Slow)

	values := make([]float64, prices.Len())
	for i := range values {
		price := prices.Value(i)
		if price == 0 || math.IsNaN(price) {
			values[i] = math.NaN()
			continue
		}
		values[i] = (fast.Value(i) - slow.Value(i)) / price
	}
	out, _ := prices.WithValues(values)
	return out
}
