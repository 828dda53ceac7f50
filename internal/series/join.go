package series

import (
	"math"
	"time"
)

// Align restricts two series to their shared timestamps, preserving order.
// Both inputs keep their own values; only timestamps present in each survive.
func Align(a, b *Series) (*Series, *Series) {
	joined := InnerJoin([]*Series{a, b})
	left := &Series{times: joined.Times, values: joined.Columns[0]}
	right := &Series{times: joined.Times, values: joined.Columns[1]}
	return left, right
}

// Joined holds the result of an inner join: the shared timestamp index and
// one value column per input series, in input order.
type Joined struct {
	Times   []time.Time
	Columns [][]float64
}

// InnerJoin aligns any number of series on the timestamps they all share.
// Timestamps carrying a NaN in any input are kept; callers decide how missing
// values combine.
func InnerJoin(list []*Series) Joined {
	if len(list) == 0 {
		return Joined{}
	}

	// Walk the first series and keep stamps present everywhere. Each series
	// keeps its own forward cursor; all indexes are strictly increasing.
	cursors := make([]int, len(list))
	joined := Joined{Columns: make([][]float64, len(list))}

	for i := 0; i < list[0].Len(); i++ {
		stamp := list[0].times[i]
		present := true
		for j := 1; j < len(list); j++ {
			for cursors[j] < list[j].Len() && list[j].times[cursors[j]].Before(stamp) {
				cursors[j]++
			}
			if cursors[j] >= list[j].Len() || !list[j].times[cursors[j]].Equal(stamp) {
				present = false
				break
			}
		}
		if !present {
			continue
		}
		joined.Times = append(joined.Times, stamp)
		joined.Columns[0] = append(joined.Columns[0], list[0].values[i])
		for j := 1; j < len(list); j++ {
			joined.Columns[j] = append(joined.Columns[j], list[j].values[cursors[j]])
		}
	}
	return joined
}

// FromJoined rebuilds a series from a joined index and one value column.
func FromJoined(times []time.Time, values []float64) *Series {
	s := &Series{
		times:  make([]time.Time, len(times)),
		values: make([]float64, len(values)),
	}
	copy(s.times, times)
	copy(s.values, values)
	return s
}

// CountDefined returns how many entries in the column are non-NaN.
func CountDefined(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
