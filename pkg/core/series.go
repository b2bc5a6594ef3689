package core

import (
	"golang.org/x/exp/constraints"
)

// Series is a time series of ordered values
// It provides methods for analyzing time series data
type Series[T constraints.Float | constraints.Integer] []T

// Values returns the underlying slice of values
func (s Series[T]) Values() []T {
	return s
}

// Length returns the number of values in the series
func (s Series[T]) Length() int {
	return len(s)
}

// Last returns the value at a specified position from the end
// position 0 is the last value, 1 is the second-to-last, etc.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns a slice with the last 'size' values
// If size exceeds the length, returns the entire series
func (s Series[T]) LastValues(size int) Series[T] {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Highest returns the maximum of the last 'size' values
func (s Series[T]) Highest(size int) T {
	window := s.LastValues(size)
	var out T
	for i, v := range window {
		if i == 0 || v > out {
			out = v
		}
	}
	return out
}

// Lowest returns the minimum of the last 'size' values
func (s Series[T]) Lowest(size int) T {
	window := s.LastValues(size)
	var out T
	for i, v := range window {
		if i == 0 || v < out {
			out = v
		}
	}
	return out
}

// Crossover detects when this series crosses above the reference series
// Returns true when the current value is higher, but the previous value was not
func (s Series[T]) Crossover(ref Series[T]) bool {
	if len(s) < 2 || len(ref) < 2 {
		return false
	}
	return s.Last(0) > ref.Last(0) && s.Last(1) <= ref.Last(1)
}

// Crossunder detects when this series crosses below the reference series
// Returns true when the current value is lower/equal, but the previous value was higher
func (s Series[T]) Crossunder(ref Series[T]) bool {
	if len(s) < 2 || len(ref) < 2 {
		return false
	}
	return s.Last(0) <= ref.Last(0) && s.Last(1) > ref.Last(1)
}

// Returns computes simple period-over-period returns.
// The result has one element less than the series.
func Returns(s Series[float64]) Series[float64] {
	if len(s) < 2 {
		return nil
	}
	out := make(Series[float64], 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		if s[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (s[i]-s[i-1])/s[i-1])
	}
	return out
}
