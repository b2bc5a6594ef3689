package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/indicator"
)

// Sub-strategy weights of the control module
var controlWeights = map[string]float64{
	"control-level":      0.15,
	"trend-following":    0.20,
	"breakout":           0.15,
	"momentum":           0.10,
	"volume-price":       0.10,
	"support-resistance": 0.10,
	"market-mood":        0.10,
	"multi-timeframe":    0.10,
}

// ControlModule is the trend and control style scorer. It reads who controls the
// tape (volume on up bars against down bars), the moving average stack, range
// breakouts and the agreement of higher timeframes.
type ControlModule struct {
	thresholds   Thresholds
	lookback     int
	volumeSurge  float64
	breakoutBars int
}

// NewControlModule creates the control module for a risk profile
func NewControlModule(profile core.RiskProfile) *ControlModule {
	return &ControlModule{
		thresholds:   ThresholdsFor(profile),
		lookback:     20,
		volumeSurge:  1.2,
		breakoutBars: 20,
	}
}

func (m *ControlModule) ID() core.StrategyID { return Control }

func (m *ControlModule) Analyze(snap core.Snapshot) Result {
	df := snap.Bars
	set := indicator.Compute(df)

	subs := []SubSignal{
		m.controlLevel(df),
		m.trendFollowing(set),
		m.breakout(df),
		m.momentum(set),
		m.volumePrice(df, set),
		m.supportResistance(df),
		m.marketMood(df, set),
		m.multiTimeframe(snap.Timeframes),
	}
	return result(Control, weighted(subs), subs, m.thresholds)
}

// controlLevel measures the share of volume traded on up bars
func (m *ControlModule) controlLevel(df core.Dataframe) SubSignal {
	const name = "control-level"
	w := controlWeights[name]
	if df.Len() < m.lookback+1 {
		return neutral(name, w, "insufficient history")
	}

	var up, total float64
	for i := df.Len() - m.lookback; i < df.Len(); i++ {
		total += df.Volume[i]
		if df.Close[i] > df.Close[i-1] {
			up += df.Volume[i]
		}
	}
	if total == 0 {
		return neutral(name, w, "no volume")
	}

	share := up / total
	score := NeutralScore + (share-0.5)*100
	if math.Abs(score-NeutralScore) < 10 {
		return neutral(name, w, fmt.Sprintf("up volume %.0f%%", share*100))
	}
	return signal(name, w, score, fmt.Sprintf("up volume %.0f%%", share*100))
}

func (m *ControlModule) trendFollowing(set indicator.Set) SubSignal {
	const name = "trend-following"
	w := controlWeights[name]
	if set.MA5 == nil || set.MA10 == nil || set.MA20 == nil {
		return neutral(name, w, "insufficient history")
	}

	ma5, ma10, ma20 := *set.MA5, *set.MA10, *set.MA20
	switch {
	case ma5 > ma10 && ma10 > ma20:
		if set.MA60 != nil && ma20 > *set.MA60 {
			return signal(name, w, 90, "MA5 > MA10 > MA20 > MA60")
		}
		return signal(name, w, 80, "MA5 > MA10 > MA20")
	case ma5 < ma10 && ma10 < ma20:
		if set.MA60 != nil && ma20 < *set.MA60 {
			return signal(name, w, 10, "MA5 < MA10 < MA20 < MA60")
		}
		return signal(name, w, 20, "MA5 < MA10 < MA20")
	}
	return neutral(name, w, "averages entangled")
}

func (m *ControlModule) breakout(df core.Dataframe) SubSignal {
	const name = "breakout"
	w := controlWeights[name]
	n := df.Len()
	if n < m.breakoutBars+1 {
		return neutral(name, w, "insufficient history")
	}

	prior := df.Head(n - 1)
	high := prior.High.Highest(m.breakoutBars)
	low := prior.Low.Lowest(m.breakoutBars)
	last := df.LastCandle(0)

	avgVolume, _ := indicator.MA(prior.Volume.Values(), m.breakoutBars)
	confirmed := avgVolume > 0 && last.Volume >= avgVolume*m.volumeSurge

	switch {
	case last.Close > high:
		if confirmed {
			return signal(name, w, 90, "closed above the range high on volume")
		}
		return signal(name, w, 70, "closed above the range high")
	case last.Close < low:
		if confirmed {
			return signal(name, w, 10, "closed below the range low on volume")
		}
		return signal(name, w, 30, "closed below the range low")
	}
	return neutral(name, w, "inside range")
}

func (m *ControlModule) momentum(set indicator.Set) SubSignal {
	const name = "momentum"
	w := controlWeights[name]
	if set.ROC == nil {
		return neutral(name, w, "insufficient history")
	}
	roc := *set.ROC
	if math.Abs(roc) < 1 {
		return neutral(name, w, fmt.Sprintf("ROC %.2f%%", roc))
	}
	return signal(name, w, NeutralScore+math.Max(-40, math.Min(40, roc*4)), fmt.Sprintf("ROC %.2f%%", roc))
}

func (m *ControlModule) volumePrice(df core.Dataframe, set indicator.Set) SubSignal {
	const name = "volume-price"
	w := controlWeights[name]
	if set.VolumeMA == nil || df.Len() < 2 || *set.VolumeMA == 0 {
		return neutral(name, w, "insufficient history")
	}

	last := df.LastCandle(0)
	change := df.Close.Last(0) - df.Close.Last(1)
	ratio := last.Volume / *set.VolumeMA
	heavy := ratio >= m.volumeSurge
	note := fmt.Sprintf("volume %.2fx average", ratio)

	switch {
	case change > 0 && heavy:
		return signal(name, w, 75, "price up on "+note)
	case change < 0 && heavy:
		return signal(name, w, 25, "price down on "+note)
	case change > 0:
		return signal(name, w, 55, "price up on light volume")
	case change < 0:
		return signal(name, w, 45, "price down on light volume")
	}
	return neutral(name, w, note)
}

// supportResistance favours bounces near the range floor and fades the ceiling
func (m *ControlModule) supportResistance(df core.Dataframe) SubSignal {
	const name = "support-resistance"
	w := controlWeights[name]
	if df.Len() < m.lookback {
		return neutral(name, w, "insufficient history")
	}

	high := df.High.Highest(m.lookback)
	low := df.Low.Lowest(m.lookback)
	if high == low {
		return neutral(name, w, "flat range")
	}

	position := (df.Close.Last(0) - low) / (high - low)
	note := fmt.Sprintf("%.0f%% of the range", position*100)
	switch {
	case position <= 0.2:
		return signal(name, w, 65, "near support, "+note)
	case position >= 0.8:
		return signal(name, w, 35, "near resistance, "+note)
	}
	return neutral(name, w, note)
}

// marketMood blends the RSI reading with the share of green bars
func (m *ControlModule) marketMood(df core.Dataframe, set indicator.Set) SubSignal {
	const (
		name = "market-mood"
		bars = 10
	)
	w := controlWeights[name]
	if df.Len() < bars {
		return neutral(name, w, "insufficient history")
	}

	green := 0
	for i := df.Len() - bars; i < df.Len(); i++ {
		if df.Close[i] > df.Open[i] {
			green++
		}
	}
	breadth := NeutralScore + (float64(green)/bars-0.5)*40

	mood := NeutralScore
	if set.RSI != nil {
		switch {
		case *set.RSI > rsiOverbought:
			mood = 35
		case *set.RSI < rsiOversold:
			mood = 65
		default:
			mood = NeutralScore + (*set.RSI-NeutralScore)*0.5
		}
	}

	score := (breadth + mood) / 2
	note := fmt.Sprintf("%d/%d green bars", green, bars)
	if math.Abs(score-NeutralScore) < 5 {
		return neutral(name, w, note)
	}
	return signal(name, w, score, note)
}

// multiTimeframe averages the trend sign of every extra timeframe
func (m *ControlModule) multiTimeframe(frames map[string]core.Dataframe) SubSignal {
	const name = "multi-timeframe"
	w := controlWeights[name]
	if len(frames) == 0 {
		return neutral(name, w, "no extra timeframes")
	}

	keys := make([]string, 0, len(frames))
	for k := range frames {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sum float64
	counted := 0
	for _, k := range keys {
		closes := frames[k].Close.Values()
		ma, ok := indicator.MA(closes, 20)
		if !ok {
			ma, ok = indicator.MA(closes, 5)
		}
		if !ok {
			continue
		}
		counted++
		switch last := closes[len(closes)-1]; {
		case last > ma:
			sum++
		case last < ma:
			sum--
		}
	}
	if counted == 0 {
		return neutral(name, w, "timeframes too short")
	}

	agreement := sum / float64(counted)
	note := fmt.Sprintf("%d timeframes, agreement %.2f", counted, agreement)
	if agreement == 0 {
		return neutral(name, w, note)
	}
	return signal(name, w, NeutralScore+40*agreement, note)
}
