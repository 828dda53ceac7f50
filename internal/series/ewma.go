package series

import "math"

// EWMAMean returns the exponentially weighted moving average with the given
// span, using the recursive (non-adjusted) form: the first defined value seeds
// the average and y[t] = (1-alpha)*y[t-1] + alpha*x[t] with alpha = 2/(span+1).
// Entries before the first defined value are NaN; a NaN input leaves the state
// unchanged and emits the running average.
func (s *Series) EWMAMean(span int) *Series {
	alpha := 2.0 / (float64(span) + 1.0)
	out := s.Slice(0, s.Len())

	mean := math.NaN()
	seeded := false
	for i, v := range s.values {
		if math.IsNaN(v) {
			out.values[i] = mean
			continue
		}
		if !seeded {
			mean = v
			seeded = true
		} else {
			mean = (1-alpha)*mean + alpha*v
		}
		out.values[i] = mean
	}
	return out
}

// EWMAStd returns the exponentially weighted standard deviation with the given
// span (non-adjusted weighting, bias-corrected). The estimate is undefined
// (NaN) until at least two defined observations have been seen, matching the
// convention that an early volatility estimate is missing rather than zero.
func (s *Series) EWMAStd(span int) *Series {
	alpha := 2.0 / (float64(span) + 1.0)
	out := s.Slice(0, s.Len())

	// Running weighted sums: total weight, weighted value, weighted square,
	// and sum of squared weights for the bias correction.
	var sw, swx, swx2, sw2 float64
	seeded := false
	for i, v := range s.values {
		if math.IsNaN(v) {
			out.values[i] = ewStd(sw, swx, swx2, sw2, seeded)
			continue
		}
		if !seeded {
			sw, swx, swx2, sw2 = 1, v, v*v, 1
			seeded = true
		} else {
			decay := 1 - alpha
			sw = decay*sw + alpha
			swx = decay*swx + alpha*v
			swx2 = decay*swx2 + alpha*v*v
			sw2 = decay*decay*sw2 + alpha*alpha
		}
		out.values[i] = ewStd(sw, swx, swx2, sw2, seeded)
	}
	return out
}

func ewStd(sw, swx, swx2, sw2 float64, seeded bool) float64 {
	if !seeded {
		return math.NaN()
	}
	denom := sw*sw - sw2
	if denom <= 0 {
		// Single effective observation; variance is undefined.
		return math.NaN()
	}
	mean := swx / sw
	biased := swx2/sw - mean*mean
	if biased < 0 {
		biased = 0
	}
	variance := biased * sw * sw / denom
	return math.Sqrt(variance)
}
