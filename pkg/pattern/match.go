// Package pattern recognises candlestick formations, Elliott wave counts and
// Gann angle structures. Detectors are stateless and never fail: when the window
// is too short or a condition does not hold the result is simply not detected.
package pattern

import (
	"sort"

	"github.com/raykavin/stratfuse/pkg/core"
)

// Type identifies a recognised pattern
type Type string

const (
	DarkCloudCover      Type = "dark_cloud_cover"
	MorningStar         Type = "morning_star"
	BullishEngulfing    Type = "bullish_engulfing"
	TripleCrash         Type = "triple_crash"
	RisingObstacle      Type = "rising_obstacle"
	ThreeWhiteSoldiers  Type = "three_white_soldiers"
	TopThreeDucks       Type = "top_three_ducks"
	DoubleGreenParallel Type = "double_green_parallel"
	ElliottWave         Type = "elliott_wave"
	GannTheory          Type = "gann_theory"
)

// Levels are the key prices emitted with a match
type Levels struct {
	Support    float64   `json:"support,omitempty"`
	Resistance float64   `json:"resistance,omitempty"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	Targets    []float64 `json:"targets,omitempty"`
}

// Match is the outcome of one detector run
type Match struct {
	Type       Type           `json:"type"`
	Detected   bool           `json:"detected"`
	Confidence float64        `json:"confidence"`
	Direction  core.Direction `json:"direction"`
	Levels     Levels         `json:"levels"`
	Notes      []string       `json:"notes,omitempty"`
}

// Detector recognises a single pattern at the end of a dataframe
type Detector func(df core.Dataframe) Match

func notDetected(t Type) Match {
	return Match{Type: t, Direction: core.Neutral}
}

func detected(t Type, dir core.Direction, confidence float64, levels Levels, notes ...string) Match {
	return Match{
		Type:       t,
		Detected:   true,
		Confidence: clamp01(confidence),
		Direction:  dir,
		Levels:     levels,
		Notes:      notes,
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// scorecard accumulates weighted sub-scores, each clamped to [0,1]
type scorecard struct {
	total float64
}

func (s *scorecard) add(weight, score float64) {
	s.total += weight * clamp01(score)
}

func (s *scorecard) value() float64 { return clamp01(s.total) }

// Candlesticks lists every candlestick detector
var Candlesticks = map[Type]Detector{
	DarkCloudCover:      DetectDarkCloudCover,
	MorningStar:         DetectMorningStar,
	BullishEngulfing:    DetectBullishEngulfing,
	TripleCrash:         DetectTripleCrash,
	RisingObstacle:      DetectRisingObstacle,
	ThreeWhiteSoldiers:  DetectThreeWhiteSoldiers,
	TopThreeDucks:       DetectTopThreeDucks,
	DoubleGreenParallel: DetectDoubleGreenParallel,
}

// DetectCandlesticks runs all candlestick detectors and returns the detected ones
// ordered by decreasing confidence
func DetectCandlesticks(df core.Dataframe) []Match {
	matches := make([]Match, 0)
	for _, detect := range Candlesticks {
		if m := detect(df); m.Detected {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence == matches[j].Confidence {
			return matches[i].Type < matches[j].Type
		}
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// Strongest returns the detected match with the highest confidence
func Strongest(matches []Match) (Match, bool) {
	var best Match
	found := false
	for _, m := range matches {
		if !m.Detected {
			continue
		}
		if !found || m.Confidence > best.Confidence {
			best, found = m, true
		}
	}
	return best, found
}

// DetectAll runs the candlestick detectors together with the default Elliott and
// Gann analyzers and returns the detected matches by decreasing confidence
func DetectAll(df core.Dataframe) []Match {
	matches := DetectCandlesticks(df)
	if wa := NewElliottAnalyzer().Analyze(df); wa.Detected {
		matches = append(matches, wa.Match)
	}
	if ga := NewGannAnalyzer().Analyze(df); ga.Detected {
		matches = append(matches, ga.Match)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	return matches
}
