package pattern

import (
	"fmt"
	"math"

	"github.com/raykavin/stratfuse/pkg/core"
)

// Fibonacci ratios used by the wave and Gann analyzers
var (
	retracementRatios = []float64{0.382, 0.5, 0.618}
	extensionRatios   = []float64{1.0, 1.618}
)

// Extremum is a local peak or trough
type Extremum struct {
	Index int
	Price float64
	Peak  bool
}

// Wave is the leg between two consecutive alternating extrema
type Wave struct {
	From Extremum
	To   Extremum
}

// Magnitude returns the signed price change of the wave
func (w Wave) Magnitude() float64 { return w.To.Price - w.From.Price }

// WaveAnalysis describes the current position in the wave cycle
type WaveAnalysis struct {
	Match
	// Position is 1..5 inside an impulse or 6..8 for the A, B and C corrective waves
	Position int
	// Trend is the direction of the impulse being counted
	Trend core.Direction
	Waves []Wave
}

// PositionLabel renders the current wave as 1..5 or A..C
func (w WaveAnalysis) PositionLabel() string {
	switch {
	case w.Position >= 1 && w.Position <= 5:
		return fmt.Sprintf("wave %d", w.Position)
	case w.Position >= 6 && w.Position <= 8:
		return fmt.Sprintf("wave %c", 'A'+rune(w.Position-6))
	default:
		return "unknown"
	}
}

// ElliottAnalyzer counts Elliott waves over the extrema of a price window
type ElliottAnalyzer struct {
	// Window is the number of bars on each side a peak or trough must dominate
	Window int
	// Lookback limits the number of bars examined
	Lookback int
	// Tolerance is the allowed distance from a Fibonacci ratio
	Tolerance float64
}

// NewElliottAnalyzer returns an analyzer with default settings
func NewElliottAnalyzer() ElliottAnalyzer {
	return ElliottAnalyzer{Window: 3, Lookback: 120, Tolerance: 0.08}
}

// FindExtrema returns the local peaks and troughs using a symmetric window, merged so
// that peaks and troughs alternate
func FindExtrema(df core.Dataframe, window int) []Extremum {
	n := df.Len()
	raw := make([]Extremum, 0)
	for i := window; i < n-window; i++ {
		peak, trough := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if df.High[j] > df.High[i] {
				peak = false
			}
			if df.Low[j] < df.Low[i] {
				trough = false
			}
		}
		if peak {
			raw = append(raw, Extremum{Index: i, Price: df.High[i], Peak: true})
		}
		if trough {
			raw = append(raw, Extremum{Index: i, Price: df.Low[i], Peak: false})
		}
	}

	merged := make([]Extremum, 0, len(raw))
	for _, e := range raw {
		if len(merged) == 0 {
			merged = append(merged, e)
			continue
		}
		last := &merged[len(merged)-1]
		if last.Peak != e.Peak {
			merged = append(merged, e)
			continue
		}
		// same kind in a row, keep the more extreme one
		if (e.Peak && e.Price > last.Price) || (!e.Peak && e.Price < last.Price) {
			*last = e
		}
	}
	return merged
}

// Analyze classifies the current wave of the dataframe
func (a ElliottAnalyzer) Analyze(df core.Dataframe) WaveAnalysis {
	out := WaveAnalysis{Match: notDetected(ElliottWave), Trend: core.Neutral}
	if a.Lookback > 0 {
		df = df.Sample(a.Lookback)
	}
	if df.Len() < 2*a.Window+3 {
		return out
	}

	extrema := FindExtrema(df, a.Window)
	if len(extrema) < 3 {
		return out
	}

	// The count starts at the most extreme pivot of the window: the lowest trough
	// when price trades above it, otherwise the highest peak.
	last := df.Close.Last(0)
	origin := a.origin(extrema, last)
	trend := core.Bullish
	if extrema[origin].Peak {
		trend = core.Bearish
	}

	waves := make([]Wave, 0, len(extrema)-origin)
	for i := origin + 1; i < len(extrema); i++ {
		waves = append(waves, Wave{From: extrema[i-1], To: extrema[i]})
	}
	if len(waves) == 0 {
		return out
	}

	position := len(waves) + 1
	if position > 8 {
		position = (position-1)%8 + 1
	}

	conformity, checks := a.conformity(waves)
	card := scorecard{total: 0.2}
	if len(waves) >= 5 && checks > 0 && conformity == checks {
		card.add(0.3, 1)
	}
	if checks > 0 {
		card.add(0.5, float64(conformity)/float64(checks))
	}

	out.Waves = waves
	out.Position = position
	out.Trend = trend
	out.Match = detected(ElliottWave, waveDirection(trend, position), card.value(),
		a.levels(waves, trend, position, last))
	out.Notes = []string{out.PositionLabel(), fmt.Sprintf("%d/%d ratio checks", conformity, checks)}
	return out
}

func (a ElliottAnalyzer) origin(extrema []Extremum, last float64) int {
	low, high := -1, -1
	for i, e := range extrema {
		if !e.Peak && (low < 0 || e.Price < extrema[low].Price) {
			low = i
		}
		if e.Peak && (high < 0 || e.Price > extrema[high].Price) {
			high = i
		}
	}

	switch {
	case low < 0:
		return high
	case high < 0:
		return low
	}

	// prefer the pivot price has moved further away from
	if math.Abs(last-extrema[low].Price)/extrema[low].Price >=
		math.Abs(extrema[high].Price-last)/extrema[high].Price {
		return low
	}
	return high
}

// conformity counts how many of the Elliott rules the completed waves satisfy
func (a ElliottAnalyzer) conformity(waves []Wave) (passed, checks int) {
	mag := func(i int) float64 { return math.Abs(waves[i].Magnitude()) }

	// corrective waves 2 and 4 retrace inside the Fibonacci band
	for _, i := range []int{1, 3} {
		if i >= len(waves) || mag(i-1) == 0 {
			continue
		}
		checks++
		if a.nearRatio(mag(i)/mag(i-1), retracementRatios) {
			passed++
		}
	}

	// wave 2 never retraces all of wave 1
	if len(waves) >= 2 {
		checks++
		if mag(1) < mag(0) {
			passed++
		}
	}

	// wave 3 is at least as long as wave 1 and never the shortest impulse
	if len(waves) >= 3 {
		checks++
		if mag(2) >= mag(0) && (len(waves) < 5 || mag(2) >= math.Min(mag(0), mag(4))) {
			passed++
		}
	}

	// wave 4 does not overlap wave 1 territory
	if len(waves) >= 4 {
		checks++
		up := waves[0].Magnitude() > 0
		if (up && waves[3].To.Price > waves[0].To.Price) || (!up && waves[3].To.Price < waves[0].To.Price) {
			passed++
		}
	}

	return passed, checks
}

func (a ElliottAnalyzer) nearRatio(ratio float64, targets []float64) bool {
	lo := targets[0] - a.Tolerance
	hi := targets[len(targets)-1] + a.Tolerance
	return ratio >= lo && ratio <= hi
}

// levels projects the next targets from the last completed wave
func (a ElliottAnalyzer) levels(waves []Wave, trend core.Direction, position int, last float64) Levels {
	lastWave := waves[len(waves)-1]
	prev := math.Abs(lastWave.Magnitude())
	start := lastWave.To.Price

	sign := 1.0
	if trend == core.Bearish {
		sign = -1
	}

	levels := Levels{}
	impulse := position == 1 || position == 3 || position == 5

	// leg direction: impulse legs move with the trend, corrective legs against it
	legSign := sign
	if !impulse && position <= 5 {
		legSign = -sign
	}
	if position >= 6 {
		// A and C move against the trend, B with it
		legSign = -sign
		if position == 7 {
			legSign = sign
		}
	}

	if impulse {
		// project the previous impulse size from the end of the last correction
		ref := prev
		if len(waves) >= 2 {
			ref = math.Abs(waves[len(waves)-2].Magnitude())
		}
		for _, r := range extensionRatios {
			levels.Targets = append(levels.Targets, start+legSign*ref*r)
		}
	} else {
		for _, r := range retracementRatios {
			levels.Targets = append(levels.Targets, start+legSign*prev*r)
		}
	}

	// the last pivot invalidates the projected leg
	levels.StopLoss = start
	if legSign > 0 {
		levels.Support = math.Min(start, last)
		levels.Resistance = levels.Targets[0]
	} else {
		levels.Resistance = math.Max(start, last)
		levels.Support = levels.Targets[0]
	}
	return levels
}

// waveDirection is the expected bias while the given wave unfolds
func waveDirection(trend core.Direction, position int) core.Direction {
	switch position {
	case 1, 2, 3, 4:
		return trend
	case 6, 8:
		return opposite(trend)
	default:
		return core.Neutral
	}
}

func opposite(d core.Direction) core.Direction {
	switch d {
	case core.Bullish:
		return core.Bearish
	case core.Bearish:
		return core.Bullish
	default:
		return core.Neutral
	}
}
