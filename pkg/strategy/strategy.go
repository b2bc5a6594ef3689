// Package strategy holds the scoring modules taking part in fusion. Each module
// runs a fixed set of named sub-strategies and folds them into a 0..100 score
// with hard-coded weights.
package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/raykavin/stratfuse/pkg/core"
)

// Module identifiers
const (
	Control   core.StrategyID = "control"
	Pattern   core.StrategyID = "pattern"
	Technical core.StrategyID = "technical"
	Momentum  core.StrategyID = "momentum"
)

// IDs lists the module identifiers in their canonical order
var IDs = []core.StrategyID{Control, Pattern, Technical, Momentum}

// NeutralScore is the score of a module or sub-strategy without an opinion
const NeutralScore = 50.0

type Module interface {
	// ID identifies the module inside the weight vector
	ID() core.StrategyID
	// Analyze scores the snapshot. Short series yield neutral scores.
	Analyze(snap core.Snapshot) Result
}

// SubSignal is the partial score of one named sub-strategy
type SubSignal struct {
	Name      string         `json:"name"`
	Score     float64        `json:"score"`
	Weight    float64        `json:"weight"`
	Direction core.Direction `json:"direction"`
	Note      string         `json:"note,omitempty"`
}

// Fired reports whether the sub-strategy expressed a directional view
func (s SubSignal) Fired() bool { return s.Direction != core.Neutral && s.Direction != "" }

// Result is the output of one module for one cycle
type Result struct {
	ID         core.StrategyID `json:"id"`
	Score      float64         `json:"score"`
	SubSignals []SubSignal     `json:"sub_signals"`
	Action     core.Action     `json:"action"`
	Rationale  string          `json:"rationale"`
	Patterns   []string        `json:"patterns,omitempty"`
	Failed     bool            `json:"module_failed"`
}

// FiredSignals returns the names of the sub-strategies with a directional view
func (r Result) FiredSignals() []string {
	names := make([]string, 0, len(r.SubSignals))
	for _, s := range r.SubSignals {
		if s.Fired() {
			names = append(names, s.Name)
		}
	}
	return names
}

// Thresholds are the score bands mapping a module score to an action
type Thresholds struct {
	StrongBuy  float64
	Buy        float64
	Sell       float64
	StrongSell float64
}

// RiskThresholds is indexed by core.RiskProfile. Conservative profiles need a
// stronger score before recommending a trade.
var RiskThresholds = [...]Thresholds{
	core.Conservative: {StrongBuy: 80, Buy: 65, Sell: 35, StrongSell: 20},
	core.Moderate:     {StrongBuy: 75, Buy: 60, Sell: 40, StrongSell: 30},
	core.Aggressive:   {StrongBuy: 70, Buy: 55, Sell: 45, StrongSell: 35},
}

// ThresholdsFor returns the table of a risk profile, falling back to moderate
func ThresholdsFor(profile core.RiskProfile) Thresholds {
	if profile < 0 || int(profile) >= len(RiskThresholds) {
		return RiskThresholds[core.Moderate]
	}
	return RiskThresholds[profile]
}

// Action maps a score to an action
func (t Thresholds) Action(score float64) core.Action {
	switch {
	case score >= t.StrongBuy:
		return core.ActionStrongBuy
	case score >= t.Buy:
		return core.ActionBuy
	case score <= t.StrongSell:
		return core.ActionStrongSell
	case score <= t.Sell:
		return core.ActionSell
	default:
		return core.ActionHold
	}
}

// Safe runs a module and isolates a panic, reporting a neutral failed result instead
func Safe(m Module, snap core.Snapshot) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = FailedResult(m.ID(), fmt.Errorf("%v", r))
		}
	}()
	res = m.Analyze(snap)
	res.ID = m.ID()
	if math.IsNaN(res.Score) || math.IsInf(res.Score, 0) {
		return FailedResult(m.ID(), fmt.Errorf("invalid score %v", res.Score))
	}
	return res
}

// FailedResult is the neutral result reported for a module that could not run
func FailedResult(id core.StrategyID, err error) Result {
	return Result{
		ID:        id,
		Score:     NeutralScore,
		Action:    core.ActionHold,
		Rationale: fmt.Sprintf("module failed: %v", err),
		Failed:    true,
	}
}

// Modules returns the four fusion modules configured for a risk profile
func Modules(profile core.RiskProfile) []Module {
	return []Module{
		NewControlModule(profile),
		NewPatternModule(profile),
		NewTechnicalModule(profile),
		NewMomentumModule(profile),
	}
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func direction(score float64) core.Direction {
	switch {
	case score > NeutralScore:
		return core.Bullish
	case score < NeutralScore:
		return core.Bearish
	default:
		return core.Neutral
	}
}

func neutral(name string, weight float64, note string) SubSignal {
	return SubSignal{Name: name, Score: NeutralScore, Weight: weight, Direction: core.Neutral, Note: note}
}

func signal(name string, weight, score float64, note string) SubSignal {
	score = clampScore(score)
	return SubSignal{Name: name, Score: score, Weight: weight, Direction: direction(score), Note: note}
}

// weighted folds sub-scores with their fixed weights. Deviations from neutral are
// accumulated so that a module without any opinion scores exactly 50.
func weighted(subs []SubSignal) float64 {
	var deviation, weights float64
	for _, s := range subs {
		deviation += (s.Score - NeutralScore) * s.Weight
		weights += s.Weight
	}
	if weights == 0 {
		return NeutralScore
	}
	return clampScore(NeutralScore + deviation/weights)
}

// rationale lists the strongest fired sub-signals
func rationale(subs []SubSignal, limit int) string {
	fired := make([]SubSignal, 0, len(subs))
	for _, s := range subs {
		if s.Fired() {
			fired = append(fired, s)
		}
	}
	if len(fired) == 0 {
		return "no sub-strategy fired"
	}

	impact := func(s SubSignal) float64 {
		w := s.Weight
		if w == 0 {
			w = 1
		}
		return math.Abs(s.Score-NeutralScore) * w
	}
	sort.SliceStable(fired, func(i, j int) bool { return impact(fired[i]) > impact(fired[j]) })
	if len(fired) > limit {
		fired = fired[:limit]
	}

	parts := make([]string, len(fired))
	for i, s := range fired {
		parts[i] = fmt.Sprintf("%s %s", s.Name, s.Direction)
		if s.Note != "" {
			parts[i] += " (" + s.Note + ")"
		}
	}
	return strings.Join(parts, "; ")
}

func result(id core.StrategyID, score float64, subs []SubSignal, t Thresholds) Result {
	return Result{
		ID:         id,
		Score:      score,
		SubSignals: subs,
		Action:     t.Action(score),
		Rationale:  rationale(subs, 3),
	}
}
