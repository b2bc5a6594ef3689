package strategy

import (
	"fmt"
	"math"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/indicator"
)

// MomentumModule scores the strength and persistence of the current move
type MomentumModule struct {
	thresholds  Thresholds
	slopeBars   int
	volumeFast  int
	volumeSlow  int
	volumeSurge float64
}

// NewMomentumModule creates the momentum module for a risk profile
func NewMomentumModule(profile core.RiskProfile) *MomentumModule {
	return &MomentumModule{
		thresholds:  ThresholdsFor(profile),
		slopeBars:   5,
		volumeFast:  5,
		volumeSlow:  20,
		volumeSurge: 1.2,
	}
}

func (m *MomentumModule) ID() core.StrategyID { return Momentum }

func (m *MomentumModule) Analyze(snap core.Snapshot) Result {
	df := snap.Bars
	set := indicator.Compute(df)

	subs := []SubSignal{
		m.macd(set),
		m.rateOfChange(set),
		m.emaSlope(df),
		m.volumeTrend(df),
		m.williams(set),
	}
	return result(Momentum, weighted(subs), subs, m.thresholds)
}

// macd only looks at the sign of the line
func (m *MomentumModule) macd(set indicator.Set) SubSignal {
	const (
		name   = "macd"
		weight = 0.30
	)
	if set.MACD == nil {
		return neutral(name, weight, "insufficient history")
	}
	switch {
	case *set.MACD > 0:
		return signal(name, weight, 70, "fast EMA above slow EMA")
	case *set.MACD < 0:
		return signal(name, weight, 30, "fast EMA below slow EMA")
	}
	return neutral(name, weight, "")
}

func (m *MomentumModule) rateOfChange(set indicator.Set) SubSignal {
	const (
		name   = "rate-of-change"
		weight = 0.20
	)
	if set.ROC == nil {
		return neutral(name, weight, "insufficient history")
	}
	note := fmt.Sprintf("ROC %.2f%%", *set.ROC)
	if *set.ROC == 0 {
		return neutral(name, weight, note)
	}
	return signal(name, weight, NeutralScore+math.Max(-40, math.Min(40, *set.ROC*4)), note)
}

func (m *MomentumModule) emaSlope(df core.Dataframe) SubSignal {
	const (
		name   = "ema-slope"
		weight = 0.20
	)
	closes := df.Close.Values()
	if len(closes) < max(indicator.DefaultMACDFast, m.slopeBars+1) {
		return neutral(name, weight, "insufficient history")
	}

	ema := indicator.EMASeries(closes, indicator.DefaultMACDFast)
	from := ema[len(ema)-1-m.slopeBars]
	if from == 0 {
		return neutral(name, weight, "")
	}
	slope := (ema[len(ema)-1] - from) / from * 100
	note := fmt.Sprintf("EMA12 %+.2f%% over %d bars", slope, m.slopeBars)
	if slope == 0 {
		return neutral(name, weight, note)
	}
	return signal(name, weight, NeutralScore+math.Max(-40, math.Min(40, slope*10)), note)
}

// volumeTrend rewards moves carried by expanding volume
func (m *MomentumModule) volumeTrend(df core.Dataframe) SubSignal {
	const (
		name   = "volume-trend"
		weight = 0.15
	)
	volumes := df.Volume.Values()
	fast, ok1 := indicator.MA(volumes, m.volumeFast)
	slow, ok2 := indicator.MA(volumes, m.volumeSlow)
	if !ok1 || !ok2 || slow == 0 || df.Len() <= m.volumeFast {
		return neutral(name, weight, "insufficient history")
	}

	ratio := fast / slow
	change := df.Close.Last(0) - df.Close.Last(m.volumeFast)
	note := fmt.Sprintf("volume %.2fx", ratio)
	if ratio < m.volumeSurge {
		return neutral(name, weight, note)
	}
	switch {
	case change > 0:
		return signal(name, weight, 70, "rising on "+note)
	case change < 0:
		return signal(name, weight, 30, "falling on "+note)
	}
	return neutral(name, weight, note)
}

func (m *MomentumModule) williams(set indicator.Set) SubSignal {
	const (
		name   = "williams-r"
		weight = 0.15
	)
	if set.WilliamsR == nil {
		return neutral(name, weight, "insufficient history")
	}
	note := fmt.Sprintf("%%R %.1f", *set.WilliamsR)
	switch {
	case *set.WilliamsR < williamsOversold:
		return signal(name, weight, 65, note+" oversold")
	case *set.WilliamsR > williamsOverbought:
		return signal(name, weight, 35, note+" overbought")
	}
	return neutral(name, weight, note)
}
