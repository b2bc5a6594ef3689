package learning

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/samber/lo"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/indicator"
	"github.com/raykavin/stratfuse/pkg/metric"
)

const (
	// EffectivenessDecay is applied on every call, correct calls also earn EffectivenessReward
	EffectivenessDecay  = 0.8
	EffectivenessReward = 0.2

	// PatternWindow is the history needed to reclassify the trading pattern
	PatternWindow   = 60
	patternMAPeriod = 20

	// an instrument is trending when its 60 bar range is at least 10% of the low
	// and the 20 bar MA moved at least 3% over its last 20 values
	trendingRange  = 0.10
	trendingMAMove = 0.03
)

// UpdateCharacteristics folds a settled trade into an instrument profile and
// returns the new profile. The input is not modified.
//
// Effectiveness of every strategy that took a side becomes eff*0.8+0.2 when the
// call was right and eff*0.8 when it was wrong, neutral calls leave it as is.
// The volatility class is recomputed from the trailing returns of the bars and
// the trading pattern once PatternWindow bars are available.
func UpdateCharacteristics(ch core.Characteristics, outcome TradeOutcome) core.Characteristics {
	out := ch.Clone()
	if out.Instrument == "" {
		out.Instrument = outcome.Instrument
	}

	for id, dir := range outcome.Contributions {
		if dir == core.Neutral || dir == "" {
			continue
		}
		eff := out.EffectivenessOf(id) * EffectivenessDecay
		if dir.Matches(outcome.ProfitLoss) {
			eff += EffectivenessReward
		}
		out.Effectiveness[id] = eff
	}

	closes := outcome.Bars.Close.Values()
	if class, ok := indicator.Volatility(closes); ok {
		out.Volatility = class
	}
	if pattern, ok := ClassifyPattern(closes); ok {
		out.Pattern = pattern
	}

	out.Trades++
	out.UpdatedAt = outcome.ClosedAt
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = time.Now()
	}
	return out
}

// ClassifyPattern labels the last PatternWindow closes as trending or ranging
// from the width of their range and the slope of the 20 bar moving average
func ClassifyPattern(closes []float64) (core.TradingPattern, bool) {
	if len(closes) < PatternWindow {
		return "", false
	}
	window := closes[len(closes)-PatternWindow:]

	low, high := lo.Min(window), lo.Max(window)
	if low <= 0 {
		return "", false
	}
	width := (high - low) / low

	ma := talib.Sma(window, patternMAPeriod)
	recent := ma[len(ma)-patternMAPeriod:]
	last := recent[len(recent)-1]
	if last == 0 {
		return "", false
	}
	move := metric.Slope(recent) * float64(patternMAPeriod-1) / last

	if width >= trendingRange && math.Abs(move) >= trendingMAMove {
		return core.PatternTrending, true
	}
	return core.PatternRanging, true
}
