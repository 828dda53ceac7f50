// Package series provides the timestamp-indexed numeric series shared by the
// forecast, sizing, backtest and portfolio packages. Missing observations are
// carried as NaN and excluded by DropNaN and the aggregate helpers.
package series

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Custom errors
var (
	ErrLengthMismatch   = errors.New("timestamps and values differ in length")
	ErrNotChronological = errors.New("timestamps are not strictly increasing")
)

// Series is an ordered sequence of (timestamp, value) pairs with strictly
// increasing timestamps. Values may be NaN to mark missing observations.
type Series struct {
	times  []time.Time
	values []float64
}

// New constructs a series from parallel timestamp and value slices.
// The inputs are copied; timestamps must be strictly increasing.
func New(times []time.Time, values []float64) (*Series, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps, %d values", ErrLengthMismatch, len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, fmt.Errorf("%w: index %d", ErrNotChronological, i)
		}
	}
	s := &Series{
		times:  make([]time.Time, len(times)),
		values: make([]float64, len(values)),
	}
	copy(s.times, times)
	copy(s.values, values)
	return s, nil
}

// Empty returns a series with no observations.
func Empty() *Series {
	return &Series{}
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.values)
}

// Time returns the timestamp at index i.
func (s *Series) Time(i int) time.Time {
	return s.times[i]
}

// Value returns the value at index i.
func (s *Series) Value(i int) float64 {
	return s.values[i]
}

// Times returns a copy of the timestamp index.
func (s *Series) Times() []time.Time {
	out := make([]time.Time, len(s.times))
	copy(out, s.times)
	return out
}

// Values returns a copy of the value slice.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Slice returns a copy of the half-open index range [start, end).
func (s *Series) Slice(start, end int) *Series {
	out := &Series{
		times:  make([]time.Time, end-start),
		values: make([]float64, end-start),
	}
	copy(out.times, s.times[start:end])
	copy(out.values, s.values[start:end])
	return out
}

// WithValues returns a new series sharing s's timestamps with the given values.
// The value slice is copied and must match the series length.
func (s *Series) WithValues(values []float64) (*Series, error) {
	if len(values) != len(s.times) {
		return nil, fmt.Errorf("%w: %d timestamps, %d values", ErrLengthMismatch, len(s.times), len(values))
	}
	out := &Series{
		times:  make([]time.Time, len(s.times)),
		values: make([]float64, len(values)),
	}
	copy(out.times, s.times)
	copy(out.values, values)
	return out, nil
}

// Map applies fn elementwise and returns the result on the same index.
// NaN inputs stay NaN.
func (s *Series) Map(fn func(float64) float64) *Series {
	out := s.Slice(0, s.Len())
	for i, v := range out.values {
		if math.IsNaN(v) {
			continue
		}
		out.values[i] = fn(v)
	}
	return out
}

// Clip bounds every value to the closed interval [lo, hi].
func (s *Series) Clip(lo, hi float64) *Series {
	return s.Map(func(v float64) float64 {
		return math.Min(hi, math.Max(lo, v))
	})
}

// PctChange returns period-over-period fractional changes on the same index.
// The first entry is NaN, as is any entry whose neighbour is NaN or zero.
func (s *Series) PctChange() *Series {
	out := s.Slice(0, s.Len())
	for i := len(out.values) - 1; i >= 1; i-- {
		prev := s.values[i-1]
		curr := s.values[i]
		if math.IsNaN(prev) || math.IsNaN(curr) || prev == 0 {
			out.values[i] = math.NaN()
			continue
		}
		out.values[i] = (curr - prev) / prev
	}
	if len(out.values) > 0 {
		out.values[0] = math.NaN()
	}
	return out
}

// Shift moves values forward by n periods, filling the vacated leading
// entries with NaN. Timestamps are unchanged.
func (s *Series) Shift(n int) *Series {
	out := s.Slice(0, s.Len())
	for i := len(out.values) - 1; i >= 0; i-- {
		if i-n >= 0 && i-n < len(s.values) {
			out.values[i] = s.values[i-n]
		} else {
			out.values[i] = math.NaN()
		}
	}
	return out
}

// DropNaN returns the series restricted to timestamps with defined values.
func (s *Series) DropNaN() *Series {
	out := &Series{}
	for i, v := range s.values {
		if math.IsNaN(v) {
			continue
		}
		out.times = append(out.times, s.times[i])
		out.values = append(out.values, v)
	}
	return out
}

// Mean returns the arithmetic mean of the defined values, or NaN when none
// are defined.
func (s *Series) Mean() float64 {
	sum := 0.0
	n := 0
	for _, v := range s.values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// MeanAbs returns the mean absolute value of the defined values, or NaN when
// none are defined.
func (s *Series) MeanAbs() float64 {
	sum := 0.0
	n := 0
	for _, v := range s.values {
		if math.IsNaN(v) {
			continue
		}
		sum += math.Abs(v)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Std returns the sample standard deviation (n-1 denominator) of the defined
// values, or NaN with fewer than two defined observations.
func (s *Series) Std() float64 {
	mean := s.Mean()
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum := 0.0
	n := 0
	for _, v := range s.values {
		if math.IsNaN(v) {
			continue
		}
		diff := v - mean
		sum += diff * diff
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(n-1))
}
