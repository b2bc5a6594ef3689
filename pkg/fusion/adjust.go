package fusion

import (
	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

// Effectiveness bands around the neutral 0.5
const (
	effectiveHigh = 0.6
	effectiveLow  = 0.4
)

// Multipliers applied by market volatility and by the trading pattern
var (
	volatilityShift = map[core.VolatilityClass]map[core.StrategyID]float64{
		core.VolatilityHigh: {
			strategy.Pattern:   1.2,
			strategy.Technical: 1.2,
			strategy.Control:   0.8,
		},
		core.VolatilityLow: {
			strategy.Control:   1.2,
			strategy.Pattern:   0.9,
			strategy.Technical: 0.9,
		},
	}

	patternShift = map[core.TradingPattern]map[core.StrategyID]float64{
		core.PatternTrending: {
			strategy.Control:  1.1,
			strategy.Momentum: 1.1,
		},
		core.PatternRanging: {
			strategy.Technical: 1.1,
			strategy.Pattern:   1.05,
		},
	}
)

// Adjust derives the effective weights of one cycle from the base vector. The
// instrument effectiveness boosts or penalizes each module, then the market
// volatility and the trading pattern shift weight between styles. The result is
// always renormalized.
func Adjust(base WeightVector, ch core.Characteristics, market core.VolatilityClass) WeightVector {
	out := base.Clone()

	for id, w := range out {
		e := ch.EffectivenessOf(id)
		switch {
		case e > effectiveHigh:
			out[id] = w * (1 + (e - effectiveHigh))
		case e < effectiveLow:
			out[id] = w * (1 - (effectiveLow - e))
		}
	}
	out = out.Normalize()

	scale(out, volatilityShift[market])
	scale(out, patternShift[ch.Pattern])

	return out.Normalize()
}

func scale(w WeightVector, factors map[core.StrategyID]float64) {
	for id, f := range factors {
		if _, ok := w[id]; ok {
			w[id] *= f
		}
	}
}
