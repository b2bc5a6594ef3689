package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger/zerolog"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

func TestLearnPrefersAccurateStrategy(t *testing.T) {
	learner := NewLearner(zerolog.Nop(), WithStrategies(strategy.Control, strategy.Pattern))
	for _, trade := range scenario(12, 9, 3) {
		require.NoError(t, learner.RecordTrade(trade))
	}

	s := learner.Learn()
	require.True(t, s.Ready)
	assert.Equal(t, 12, s.Trades)
	assert.InDelta(t, 0.75, s.HitRates[strategy.Control], 1e-9)
	assert.InDelta(t, 0.25, s.HitRates[strategy.Pattern], 1e-9)
	assert.Greater(t, s.Weights[strategy.Control], s.Weights[strategy.Pattern])
	assert.InDelta(t, 0.75, s.Weights[strategy.Control], 1e-9)
	require.NoError(t, s.Weights.Validate())

	for id, interval := range s.Intervals {
		assert.LessOrEqual(t, interval.Low, interval.High, id)
		assert.GreaterOrEqual(t, interval.Low, 0.0, id)
		assert.LessOrEqual(t, interval.High, 1.0, id)
	}
}

func TestLearnInsufficientData(t *testing.T) {
	learner := NewLearner(zerolog.Nop())
	for _, trade := range scenario(9, 5, 5) {
		require.NoError(t, learner.RecordTrade(trade))
	}

	s := learner.Learn()
	assert.False(t, s.Ready)
	assert.Equal(t, ReasonInsufficientData, s.Reason)
	assert.Equal(t, 9, s.Trades)
	assert.Empty(t, s.Weights)
	assert.False(t, learner.Due())
}

func TestLearnGrowthRule(t *testing.T) {
	learner := NewLearner(zerolog.Nop())
	trades := scenario(20, 12, 6)

	ready := make([]int, 0)
	for i, trade := range trades {
		require.NoError(t, learner.RecordTrade(trade))
		if s := learner.Learn(); s.Ready {
			ready = append(ready, i+1)
		} else if i+1 >= MinTrades {
			assert.Equal(t, ReasonAwaitingGrowth, s.Reason)
		}
	}

	// 10, then at least 12.5, then at least 16.25
	assert.Equal(t, []int{10, 13, 17}, ready)
}

func TestLearnDefaultStrategies(t *testing.T) {
	learner := NewLearner(zerolog.Nop())
	for _, trade := range scenario(10, 10, 0) {
		require.NoError(t, learner.RecordTrade(trade))
	}

	s := learner.Learn()
	require.True(t, s.Ready)
	assert.ElementsMatch(t, strategy.IDs, s.Weights.IDs())
	assert.InDelta(t, 1.0, s.Weights[strategy.Control], 1e-9)
	assert.Zero(t, s.Weights[strategy.Technical])
}

func TestSuggestWithoutHitsIsUniform(t *testing.T) {
	s := Suggest(scenario(10, 0, 0), []core.StrategyID{strategy.Control, strategy.Pattern})
	assert.InDelta(t, 0.5, s.Weights[strategy.Control], 1e-9)
	assert.InDelta(t, 0.5, s.Weights[strategy.Pattern], 1e-9)
}

func TestRecordTradeValidation(t *testing.T) {
	learner := NewLearner(zerolog.Nop())

	err := learner.RecordTrade(TradeOutcome{Contributions: map[core.StrategyID]core.Direction{strategy.Control: core.Bullish}})
	require.ErrorIs(t, err, core.ErrEmptyInstrument)

	err = learner.RecordTrade(TradeOutcome{Instrument: "AAPL"})
	require.ErrorIs(t, err, ErrNoContributions)
	assert.Empty(t, learner.Trades())
}

func TestMaxTradesKeepsGrowthCount(t *testing.T) {
	learner := NewLearner(zerolog.Nop(), WithMaxTrades(10))
	for _, trade := range scenario(13, 13, 0) {
		require.NoError(t, learner.RecordTrade(trade))
	}

	assert.Len(t, learner.Trades(), 10)
	s := learner.Learn()
	require.True(t, s.Ready)
	assert.Equal(t, 10, s.Trades)
}

func TestApplyWeightOptimization(t *testing.T) {
	old := fusion.DefaultWeights()
	suggested := fusion.WeightVector{
		strategy.Control:   0.40,
		strategy.Pattern:   0.10,
		strategy.Technical: 0.30,
		strategy.Momentum:  0.20,
	}

	next := ApplyWeightOptimization(old, suggested)
	require.NoError(t, next.Validate())
	for id := range old {
		assert.InDelta(t, old[id]*0.3+suggested[id]*0.7, next[id], 1e-12, id)
	}
	assert.NotEqual(t, suggested[strategy.Pattern], next[strategy.Pattern])
	assert.Equal(t, fusion.DefaultWeights(), old)
}

func TestApplyWeightOptimizationPartialSuggestion(t *testing.T) {
	old := fusion.DefaultWeights()
	suggested := fusion.WeightVector{strategy.Control: 0.75, strategy.Pattern: 0.25}

	next := ApplyWeightOptimization(old, suggested)
	require.NoError(t, next.Validate())
	assert.InDelta(t, 0.30*0.3+0.75*0.7, next[strategy.Control], 1e-12)
	assert.InDelta(t, 0.25*0.3, next[strategy.Technical], 1e-12)
	assert.InDelta(t, 0.20*0.3, next[strategy.Momentum], 1e-12)

	assert.Equal(t, old, ApplyWeightOptimization(old, nil))
}

func TestApplyWeightOptimizationRenormalizes(t *testing.T) {
	old := fusion.WeightVector{strategy.Control: 2, strategy.Pattern: 2}
	next := ApplyWeightOptimization(old, fusion.WeightVector{strategy.Control: 1})
	require.NoError(t, next.Validate())
	assert.Greater(t, next[strategy.Control], next[strategy.Pattern])
}
