package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

func TestClassify_Bands(t *testing.T) {
	cases := []struct {
		score  float64
		buys   int
		sells  int
		action core.Action
		weak   bool
	}{
		{80, 0, 4, core.ActionStrongBuy, false},
		{75, 0, 0, core.ActionStrongBuy, false},
		{60, 0, 3, core.ActionBuy, false},
		{50, 0, 0, core.ActionHold, false},
		{50, 2, 2, core.ActionHold, false},
		{50, 3, 1, core.ActionBuy, true},
		{41, 1, 0, core.ActionBuy, true},
		{59.9, 0, 1, core.ActionSell, true},
		{40, 4, 0, core.ActionSell, false},
		{30, 4, 0, core.ActionStrongSell, false},
		{0, 0, 0, core.ActionStrongSell, false},
	}
	for _, c := range cases {
		action, weak := Classify(c.score, c.buys, c.sells)
		assert.Equal(t, c.action, action, "score %.1f", c.score)
		assert.Equal(t, c.weak, weak, "score %.1f", c.score)
	}
}

func TestClassify_Monotone(t *testing.T) {
	for buys := 0; buys <= 4; buys++ {
		for sells := 0; sells <= 4-buys; sells++ {
			prev := core.ActionStrongSell.Rank()
			for score := 0.0; score <= 100; score += 0.25 {
				action, _ := Classify(score, buys, sells)
				require.GreaterOrEqual(t, action.Rank(), prev, "score %.2f buys %d sells %d", score, buys, sells)
				prev = action.Rank()
			}
		}
	}
}

func TestAllocation(t *testing.T) {
	assert.Equal(t, 0.8, Allocation(core.ActionStrongBuy, false))
	assert.Equal(t, 0.5, Allocation(core.ActionBuy, false))
	assert.Equal(t, 0.3, Allocation(core.ActionBuy, true))
	assert.Equal(t, 0.0, Allocation(core.ActionHold, false))
	assert.Equal(t, 0.3, Allocation(core.ActionSell, true))
	assert.Equal(t, 0.5, Allocation(core.ActionSell, false))
	assert.Equal(t, 0.8, Allocation(core.ActionStrongSell, false))
}

func TestAggregate(t *testing.T) {
	weights := WeightVector{strategy.Control: 0.5, strategy.Pattern: 0.3, strategy.Technical: 0.2}
	results := []strategy.Result{
		{ID: strategy.Control, Score: 80, Action: core.ActionStrongBuy},
		{ID: strategy.Pattern, Score: 10, Action: core.ActionStrongSell, Failed: true},
	}

	score, contributions := Aggregate(results, weights)

	// failed pattern and missing technical both count as neutral
	assert.InDelta(t, 0.5*80+0.3*50+0.2*50, score, 1e-9)
	require.Len(t, contributions, 2)
	assert.True(t, contributions[1].Failed)
	assert.Equal(t, core.ActionHold, contributions[1].Action)

	buys, sells := Tally(contributions)
	assert.Equal(t, 1, buys)
	assert.Equal(t, 0, sells)
}

func TestRationale_TopContributors(t *testing.T) {
	contributions := []Contribution{
		{ID: strategy.Control, Weight: 0.3, Score: 70, Weighted: 21, SubSignals: []string{"breakout"}},
		{ID: strategy.Pattern, Weight: 0.25, Score: 40, Weighted: 10},
		{ID: strategy.Technical, Weight: 0.25, Score: 95, Weighted: 23.75, Patterns: nil, SubSignals: []string{"rsi", "ma-cross"}},
		{ID: strategy.Momentum, Weight: 0.2, Score: 50, Weighted: 10},
	}

	r := Rationale(core.ActionBuy, false, 64.75, contributions)
	assert.Equal(t, "buy at 64.8: technical 0.25x95.0 [rsi, ma-cross]; control 0.30x70.0 [breakout]", r)
	assert.NotContains(t, r, "momentum")

	weak := Rationale(core.ActionBuy, true, 55, contributions[:1])
	assert.Equal(t, "weak buy at 55.0: control 0.30x70.0 [breakout]", weak)
}

func TestDecision_Directions(t *testing.T) {
	d := Decision{
		Action: core.ActionSell,
		Weak:   true,
		Contributions: []Contribution{
			{ID: strategy.Control, Action: core.ActionBuy},
			{ID: strategy.Pattern, Action: core.ActionStrongSell},
			{ID: strategy.Technical, Action: core.ActionHold},
		},
	}

	dirs := d.Directions()
	assert.Equal(t, core.Bullish, dirs[strategy.Control])
	assert.Equal(t, core.Bearish, dirs[strategy.Pattern])
	assert.Equal(t, core.Neutral, dirs[strategy.Technical])
	assert.Equal(t, "weak_sell", d.Label())
}
