package strategy

import (
	"fmt"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/pattern"
)

// PatternModule scores candlestick formations, the Elliott wave count and the
// Gann angle structure
type PatternModule struct {
	thresholds Thresholds
	elliott    pattern.ElliottAnalyzer
	gann       pattern.GannAnalyzer
}

// NewPatternModule creates the pattern module for a risk profile
func NewPatternModule(profile core.RiskProfile) *PatternModule {
	return &PatternModule{
		thresholds: ThresholdsFor(profile),
		elliott:    pattern.NewElliottAnalyzer(),
		gann:       pattern.NewGannAnalyzer(),
	}
}

func (m *PatternModule) ID() core.StrategyID { return Pattern }

func (m *PatternModule) Analyze(snap core.Snapshot) Result {
	df := snap.Bars
	names := make([]string, 0)

	candles := pattern.DetectCandlesticks(df)
	for _, c := range candles {
		names = append(names, string(c.Type))
	}

	wave := m.elliott.Analyze(df)
	if wave.Detected {
		names = append(names, fmt.Sprintf("%s (%s)", pattern.ElliottWave, wave.PositionLabel()))
	}
	gann := m.gann.Analyze(df)
	if gann.Detected && gann.Direction != core.Neutral {
		names = append(names, string(pattern.GannTheory))
	}

	subs := []SubSignal{
		candlestickSignal(candles),
		matchSignal("elliott-wave", 0.25, 40, wave.Match, wave.PositionLabel()),
		matchSignal("gann", 0.25, 30, gann.Match, ""),
	}

	res := result(Pattern, weighted(subs), subs, m.thresholds)
	res.Patterns = names
	return res
}

// candlestickSignal nets the confidence of bullish against bearish formations
func candlestickSignal(matches []pattern.Match) SubSignal {
	const (
		name   = "candlesticks"
		weight = 0.50
	)
	if len(matches) == 0 {
		return neutral(name, weight, "no formation")
	}

	var net float64
	for _, m := range matches {
		switch m.Direction {
		case core.Bullish:
			net += m.Confidence
		case core.Bearish:
			net -= m.Confidence
		}
	}
	net = max(-1, min(1, net))

	best, _ := pattern.Strongest(matches)
	note := fmt.Sprintf("%s %.2f", best.Type, best.Confidence)
	if net == 0 {
		return neutral(name, weight, note)
	}
	return signal(name, weight, NeutralScore+50*net, note)
}

func matchSignal(name string, weight, span float64, m pattern.Match, label string) SubSignal {
	if !m.Detected {
		return neutral(name, weight, "not detected")
	}
	note := fmt.Sprintf("confidence %.2f", m.Confidence)
	if label != "" {
		note = label + ", " + note
	}
	switch m.Direction {
	case core.Bullish:
		return signal(name, weight, NeutralScore+span*m.Confidence, note)
	case core.Bearish:
		return signal(name, weight, NeutralScore-span*m.Confidence, note)
	}
	return neutral(name, weight, note)
}
