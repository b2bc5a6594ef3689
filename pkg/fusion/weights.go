package fusion

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

// WeightTolerance is the allowed distance of a weight vector sum from 1
const WeightTolerance = 1e-6

// ErrInvalidWeights is returned when a weight vector is not a normalized,
// non-negative distribution
var ErrInvalidWeights = errors.New("invalid weight vector")

// WeightVector maps a strategy module to its contribution in fusion. Published
// vectors are never mutated in place, every adjustment returns a copy.
type WeightVector map[core.StrategyID]float64

// DefaultWeights is the base vector used until one is configured or learned
func DefaultWeights() WeightVector {
	return WeightVector{
		strategy.Control:   0.30,
		strategy.Pattern:   0.25,
		strategy.Technical: 0.25,
		strategy.Momentum:  0.20,
	}
}

// IDs returns the strategy ids in lexical order
func (w WeightVector) IDs() []core.StrategyID {
	ids := lo.Keys(w)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sum returns the total weight
func (w WeightVector) Sum() float64 {
	return lo.Sum(lo.Values(w))
}

// Clone returns an independent copy
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for id, v := range w {
		out[id] = v
	}
	return out
}

// Validate checks every weight is a non-negative number and the sum is 1
func (w WeightVector) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidWeights)
	}
	for id, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, id, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("%w: sum %.8f", ErrInvalidWeights, sum)
	}
	return nil
}

// Normalize returns a copy scaled to sum 1. Negative entries are floored at zero
// and an all-zero vector becomes uniform.
func (w WeightVector) Normalize() WeightVector {
	out := make(WeightVector, len(w))
	var sum float64
	for id, v := range w {
		if v < 0 || math.IsNaN(v) {
			v = 0
		}
		out[id] = v
		sum += v
	}
	if len(out) == 0 {
		return out
	}
	if sum == 0 || math.IsInf(sum, 0) {
		for id := range out {
			out[id] = 1 / float64(len(out))
		}
		return out
	}
	for id := range out {
		out[id] /= sum
	}
	return out
}

// Of returns the weight of a module, zero when absent
func (w WeightVector) Of(id core.StrategyID) float64 {
	return w[id]
}

func (w WeightVector) String() string {
	parts := lo.Map(w.IDs(), func(id core.StrategyID, _ int) string {
		return fmt.Sprintf("%s=%.4f", id, w[id])
	})
	return strings.Join(parts, " ")
}
