package fusion

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

// Fusion score bands
const (
	StrongBuyScore  = 75.0
	BuyScore        = 60.0
	SellScore       = 40.0
	StrongSellScore = 30.0
)

// Fractions of the maximum position opened or closed per action
const (
	StrongAllocation = 0.8
	NormalAllocation = 0.5
	WeakAllocation   = 0.3
)

// Contribution is the share of one module in a decision
type Contribution struct {
	ID         core.StrategyID `json:"id"`
	Weight     float64         `json:"weight"`
	Score      float64         `json:"score"`
	Weighted   float64         `json:"weighted"`
	Action     core.Action     `json:"action"`
	Failed     bool            `json:"module_failed,omitempty"`
	SubSignals []string        `json:"sub_signals,omitempty"`
	Patterns   []string        `json:"patterns,omitempty"`
}

// Direction is the bias of the module recommendation
func (c Contribution) Direction() core.Direction { return c.Action.Direction() }

// Decision is the fused recommendation of one cycle
type Decision struct {
	Instrument    string               `json:"instrument"`
	Time          time.Time            `json:"time"`
	Action        core.Action          `json:"action"`
	Weak          bool                 `json:"weak,omitempty"`
	Score         float64              `json:"score"`
	Allocation    float64              `json:"allocation"`
	Rationale     string               `json:"rationale"`
	Contributions []Contribution       `json:"contributions"`
	Weights       WeightVector         `json:"weights"`
	BuySignals    int                  `json:"buy_signals"`
	SellSignals   int                  `json:"sell_signals"`
	Volatility    core.VolatilityClass `json:"volatility"`
	Price         float64              `json:"price"`
}

// Directions returns the direction recommended by each module, the breakdown
// recorded with a trade for later learning
func (d Decision) Directions() map[core.StrategyID]core.Direction {
	out := make(map[core.StrategyID]core.Direction, len(d.Contributions))
	for _, c := range d.Contributions {
		out[c.ID] = c.Direction()
	}
	return out
}

// Label renders the action with its weak flag
func (d Decision) Label() string {
	if d.Weak {
		return "weak_" + string(d.Action)
	}
	return string(d.Action)
}

// Aggregate computes the weighted overall score. Modules absent from the weight
// vector do not contribute and failed modules count as neutral.
func Aggregate(results []strategy.Result, weights WeightVector) (float64, []Contribution) {
	contributions := make([]Contribution, 0, len(results))
	var score float64
	for _, r := range results {
		s := r.Score
		if r.Failed {
			s = strategy.NeutralScore
		}
		w := weights.Of(r.ID)
		c := Contribution{
			ID:         r.ID,
			Weight:     w,
			Score:      s,
			Weighted:   w * s,
			Action:     r.Action,
			Failed:     r.Failed,
			SubSignals: r.FiredSignals(),
			Patterns:   r.Patterns,
		}
		if r.Failed {
			c.Action = core.ActionHold
		}
		score += c.Weighted
		contributions = append(contributions, c)
	}

	// modules expected by the vector but missing from the results are neutral
	for _, id := range weights.IDs() {
		if !containsModule(results, id) {
			score += weights[id] * strategy.NeutralScore
		}
	}
	return score, contributions
}

func containsModule(results []strategy.Result, id core.StrategyID) bool {
	for _, r := range results {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Tally counts the buy and sell class recommendations of the contributions
func Tally(contributions []Contribution) (buys, sells int) {
	for _, c := range contributions {
		switch {
		case c.Failed:
		case c.Action.IsBuy():
			buys++
		case c.Action.IsSell():
			sells++
		}
	}
	return buys, sells
}

// Classify maps the overall score to an action. Inside the hold band the signal
// tally breaks ties into a weak buy or a weak sell.
func Classify(score float64, buys, sells int) (action core.Action, weak bool) {
	switch {
	case score >= StrongBuyScore:
		return core.ActionStrongBuy, false
	case score >= BuyScore:
		return core.ActionBuy, false
	case score <= StrongSellScore:
		return core.ActionStrongSell, false
	case score <= SellScore:
		return core.ActionSell, false
	case buys > sells:
		return core.ActionBuy, true
	case sells > buys:
		return core.ActionSell, true
	default:
		return core.ActionHold, false
	}
}

// Allocation returns the fraction of the maximum position for an action
func Allocation(action core.Action, weak bool) float64 {
	switch {
	case action == core.ActionHold:
		return 0
	case weak:
		return WeakAllocation
	case action == core.ActionStrongBuy || action == core.ActionStrongSell:
		return StrongAllocation
	default:
		return NormalAllocation
	}
}

// Rationale explains the decision through its two largest contributors
func Rationale(action core.Action, weak bool, score float64, contributions []Contribution) string {
	top := make([]Contribution, len(contributions))
	copy(top, contributions)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Weighted > top[j].Weighted })
	if len(top) > 2 {
		top = top[:2]
	}

	label := string(action)
	if weak {
		label = "weak " + label
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %.1f", label, score)
	for i, c := range top {
		sep := ": "
		if i > 0 {
			sep = "; "
		}
		fmt.Fprintf(&b, "%s%s %.2fx%.1f", sep, c.ID, c.Weight, c.Score)
		if c.Failed {
			b.WriteString(" (module failed)")
			continue
		}
		details := append(append([]string{}, c.SubSignals...), c.Patterns...)
		if len(details) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(details, ", "))
		}
	}
	return b.String()
}
