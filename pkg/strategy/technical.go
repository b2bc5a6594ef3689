package strategy

import (
	"fmt"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/indicator"
)

// Oscillator bands used by the technical rules
const (
	rsiOversold        = 30.0
	rsiOverbought      = 70.0
	kdjOversold        = 20.0
	kdjOverbought      = 80.0
	williamsOversold   = -80.0
	williamsOverbought = -20.0
)

// Points each technical rule adds to or removes from the neutral score
const (
	crossPoints    = 20.0
	rsiPoints      = 15.0
	pricePoints    = 10.0
	kdjPoints      = 10.0
	williamsPoints = 5.0
)

// TechnicalModule is the oscillator style scorer. It starts from a neutral 50 and
// adds or removes fixed points per rule, so its sub-signals carry the rule score
// 50 +/- points and the module score is 50 plus the sum of their deviations.
type TechnicalModule struct {
	thresholds Thresholds
}

// NewTechnicalModule creates the technical module for a risk profile
func NewTechnicalModule(profile core.RiskProfile) *TechnicalModule {
	return &TechnicalModule{thresholds: ThresholdsFor(profile)}
}

func (m *TechnicalModule) ID() core.StrategyID { return Technical }

func (m *TechnicalModule) Analyze(snap core.Snapshot) Result {
	score, subs := ScoreIndicators(indicator.Compute(snap.Bars))
	return result(Technical, score, subs, m.thresholds)
}

// ScoreIndicators applies the technical rules to an indicator set. Missing
// indicators contribute nothing.
func ScoreIndicators(set indicator.Set) (float64, []SubSignal) {
	subs := []SubSignal{
		maCross(set),
		rsiRule(set),
		priceVsMA(set),
		kdjRule(set),
		williamsRule(set),
	}

	score := NeutralScore
	for _, s := range subs {
		score += s.Score - NeutralScore
	}
	return clampScore(score), subs
}

func maCross(set indicator.Set) SubSignal {
	const name = "ma-cross"
	if set.MA5 == nil || set.MA20 == nil {
		return neutral(name, 1, "insufficient history")
	}
	switch {
	case *set.MA5 > *set.MA20:
		return signal(name, 1, NeutralScore+crossPoints, "MA5 above MA20")
	case *set.MA5 < *set.MA20:
		return signal(name, 1, NeutralScore-crossPoints, "MA5 below MA20")
	}
	return neutral(name, 1, "")
}

func rsiRule(set indicator.Set) SubSignal {
	const name = "rsi"
	if set.RSI == nil {
		return neutral(name, 1, "insufficient history")
	}
	note := fmt.Sprintf("RSI %.1f", *set.RSI)
	switch {
	case *set.RSI < rsiOversold:
		return signal(name, 1, NeutralScore+rsiPoints, note+" oversold")
	case *set.RSI > rsiOverbought:
		return signal(name, 1, NeutralScore-rsiPoints, note+" overbought")
	}
	return neutral(name, 1, note)
}

func priceVsMA(set indicator.Set) SubSignal {
	const name = "price-vs-ma20"
	if set.MA20 == nil {
		return neutral(name, 1, "insufficient history")
	}
	switch {
	case set.Price > *set.MA20:
		return signal(name, 1, NeutralScore+pricePoints, "price above MA20")
	case set.Price < *set.MA20:
		return signal(name, 1, NeutralScore-pricePoints, "price below MA20")
	}
	return neutral(name, 1, "")
}

func kdjRule(set indicator.Set) SubSignal {
	const name = "kdj"
	if set.K == nil || set.D == nil {
		return neutral(name, 1, "insufficient history")
	}
	k, d := *set.K, *set.D
	switch {
	case k < kdjOversold && k > d:
		return signal(name, 1, NeutralScore+kdjPoints, "K crossed above D while oversold")
	case k > kdjOverbought && k < d:
		return signal(name, 1, NeutralScore-kdjPoints, "K crossed below D while overbought")
	}
	return neutral(name, 1, fmt.Sprintf("K %.1f D %.1f", k, d))
}

func williamsRule(set indicator.Set) SubSignal {
	const name = "williams-r"
	if set.WilliamsR == nil {
		return neutral(name, 1, "insufficient history")
	}
	switch {
	case *set.WilliamsR < williamsOversold:
		return signal(name, 1, NeutralScore+williamsPoints, "oversold")
	case *set.WilliamsR > williamsOverbought:
		return signal(name, 1, NeutralScore-williamsPoints, "overbought")
	}
	return neutral(name, 1, "")
}
