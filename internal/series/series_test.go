package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daily(t *testing.T, values []float64) *Series {
	t.Helper()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(values))
	for i := range values {
		times[i] = start.AddDate(0, 0, i)
	}
	s, err := New(times, values)
	require.NoError(t, err)
	return s
}

func TestNewValidation(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("length mismatch", func(t *testing.T) {
		_, err := New([]time.Time{start}, []float64{1, 2})
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("duplicate timestamp", func(t *testing.T) {
		_, err := New([]time.Time{start, start}, []float64{1, 2})
		assert.ErrorIs(t, err, ErrNotChronological)
	})

	t.Run("out of order", func(t *testing.T) {
		_, err := New([]time.Time{start.AddDate(0, 0, 1), start}, []float64{1, 2})
		assert.ErrorIs(t, err, ErrNotChronological)
	})

	t.Run("inputs are copied", func(t *testing.T) {
		values := []float64{1, 2}
		s, err := New([]time.Time{start, start.AddDate(0, 0, 1)}, values)
		require.NoError(t, err)
		values[0] = 99
		assert.Equal(t, 1.0, s.Value(0))
	})
}

func TestPctChange(t *testing.T) {
	s := daily(t, []float64{100, 110, 99, 99})
	pct := s.PctChange()

	assert.True(t, math.IsNaN(pct.Value(0)))
	assert.InDelta(t, 0.10, pct.Value(1), 1e-12)
	assert.InDelta(t, -0.10, pct.Value(2), 1e-12)
	assert.InDelta(t, 0.0, pct.Value(3), 1e-12)
}

func TestPctChangeZeroAndMissing(t *testing.T) {
	s := daily(t, []float64{0, 50, math.NaN(), 60})
	pct := s.PctChange()

	assert.True(t, math.IsNaN(pct.Value(1)), "change from zero is undefined")
	assert.True(t, math.IsNaN(pct.Value(2)))
	assert.True(t, math.IsNaN(pct.Value(3)), "change from missing is undefined")
}

func TestShift(t *testing.T) {
	s := daily(t, []float64{1, 2, 3})
	shifted := s.Shift(1)

	assert.True(t, math.IsNaN(shifted.Value(0)))
	assert.Equal(t, 1.0, shifted.Value(1))
	assert.Equal(t, 2.0, shifted.Value(2))
	// Index is unchanged.
	assert.Equal(t, s.Time(0), shifted.Time(0))
}

func TestClip(t *testing.T) {
	s := daily(t, []float64{-30, -5, 0, 5, 30})
	clipped := s.Clip(-20, 20)

	assert.Equal(t, []float64{-20, -5, 0, 5, 20}, clipped.Values())
}

func TestDropNaN(t *testing.T) {
	s := daily(t, []float64{1, math.NaN(), 3})
	kept := s.DropNaN()

	require.Equal(t, 2, kept.Len())
	assert.Equal(t, 1.0, kept.Value(0))
	assert.Equal(t, 3.0, kept.Value(1))
	assert.Equal(t, s.Time(2), kept.Time(1))
}

func TestAggregatesSkipMissing(t *testing.T) {
	s := daily(t, []float64{2, math.NaN(), -4})

	assert.InDelta(t, -1.0, s.Mean(), 1e-12)
	assert.InDelta(t, 3.0, s.MeanAbs(), 1e-12)
	// Sample std of {2, -4}.
	assert.InDelta(t, math.Sqrt(18), s.Std(), 1e-12)
}

func TestStdNeedsTwoObservations(t *testing.T) {
	s := daily(t, []float64{5, math.NaN()})
	assert.True(t, math.IsNaN(s.Std()))
}

func TestSliceIsACopy(t *testing.T) {
	s := daily(t, []float64{1, 2, 3, 4})
	window := s.Slice(1, 3)

	require.Equal(t, 2, window.Len())
	assert.Equal(t, 2.0, window.Value(0))
	assert.Equal(t, s.Time(1), window.Time(0))
}
