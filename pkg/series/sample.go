// Package series holds the tick-aligned rolling windows that back every chart.
package series

import (
	"math"
	"strconv"
)

// Tick is one step of the shared sampling clock.
type Tick uint64

// Sample is a value observed for one key at one tick. The zero Sample is the
// absence marker: no value this period, which is distinct from zero.
type Sample struct {
	Value float64
	Valid bool
}

// Absent is the explicit "no value this period" marker.
var Absent = Sample{}

// Value wraps v as a present sample. NaN and Inf are treated as absent.
func Value(v float64) Sample {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Absent
	}
	return Sample{Value: v, Valid: true}
}

// Float returns the value and whether it is present.
func (s Sample) Float() (float64, bool) {
	return s.Value, s.Valid
}

// Interface returns the value as float64, or nil when absent.
func (s Sample) Interface() interface{} {
	if !s.Valid {
		return nil
	}
	return s.Value
}

func (s Sample) String() string {
	if !s.Valid {
		return "-"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// MarshalJSON encodes absent samples as null so charts render a gap.
func (s Sample) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, s.Value, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (s *Sample) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Absent
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*s = Value(v)
	return nil
}
