package learning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/optimizer"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

func replayTrades() []TradeOutcome {
	trade := func(control, pattern core.Direction, pl float64) TradeOutcome {
		return TradeOutcome{
			Instrument: "AAPL",
			Contributions: map[core.StrategyID]core.Direction{
				strategy.Control: control,
				strategy.Pattern: pattern,
			},
			ProfitLoss: pl,
		}
	}
	return []TradeOutcome{
		trade(core.Bullish, core.Bearish, 0.10),
		trade(core.Bearish, core.Bullish, -0.05),
		trade(core.Bullish, core.Bullish, -0.02),
	}
}

func TestReplayEvaluator(t *testing.T) {
	evaluator := NewReplayEvaluator(replayTrades())

	result, err := evaluator.Evaluate(context.Background(), fusion.WeightVector{strategy.Control: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, result.Metric(optimizer.MetricHitRate), 1e-12)
	assert.InDelta(t, 0.13, result.Metric(optimizer.MetricProfit), 1e-12)
	assert.Equal(t, 3.0, result.Metric(optimizer.MetricTradeCount))

	// opposite calls cancel out and the trade is skipped
	result, err = evaluator.Evaluate(context.Background(), fusion.WeightVector{strategy.Control: 0.5, strategy.Pattern: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Metric(optimizer.MetricHitRate))
	assert.InDelta(t, -0.02, result.Metric(optimizer.MetricProfit), 1e-12)
	assert.Equal(t, 1.0, result.Metric(optimizer.MetricTradeCount))
}

func TestReplayEvaluatorWithSearch(t *testing.T) {
	search, err := optimizer.NewGridSearch(optimizer.NewConfig().
		WithStrategies(strategy.Control, strategy.Pattern).
		WithStep(0.25).
		WithTopN(1))
	require.NoError(t, err)

	results, err := search.Optimize(context.Background(), NewReplayEvaluator(replayTrades()))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 2.0/3.0, results[0].Metric(optimizer.MetricHitRate), 1e-12)
	assert.Greater(t, results[0].Weights[strategy.Control], results[0].Weights[strategy.Pattern])
}

func TestReplayEvaluatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReplayEvaluator(replayTrades()).Evaluate(ctx, fusion.DefaultWeights())
	require.ErrorIs(t, err, context.Canceled)
}
