package learning

import (
	"context"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/optimizer"
)

// ReplayEvaluator scores a weight vector by replaying recorded trades: the fused
// call of a trade is the sign of the weighted strategy directions.
type ReplayEvaluator struct {
	trades []TradeOutcome
}

// NewReplayEvaluator creates an evaluator over a fixed trade history
func NewReplayEvaluator(trades []TradeOutcome) *ReplayEvaluator {
	return &ReplayEvaluator{trades: trades}
}

func sign(d core.Direction) float64 {
	switch d {
	case core.Bullish:
		return 1
	case core.Bearish:
		return -1
	default:
		return 0
	}
}

// Evaluate reports the hit-rate, profit and count of trades where the fused
// call took a side
func (r *ReplayEvaluator) Evaluate(ctx context.Context, weights fusion.WeightVector) (*optimizer.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var taken, hits int
	var profit float64
	for _, trade := range r.trades {
		var fused float64
		for id, dir := range trade.Contributions {
			fused += weights[id] * sign(dir)
		}
		if fused == 0 {
			continue
		}

		taken++
		if fused > 0 {
			profit += trade.ProfitLoss
		} else {
			profit -= trade.ProfitLoss
		}
		if (fused > 0) == (trade.ProfitLoss > 0) && trade.ProfitLoss != 0 {
			hits++
		}
	}

	var hitRate float64
	if taken > 0 {
		hitRate = float64(hits) / float64(taken)
	}

	return &optimizer.Result{
		Weights: weights.Clone(),
		Metrics: map[string]float64{
			string(optimizer.MetricHitRate):    hitRate,
			string(optimizer.MetricProfit):     profit,
			string(optimizer.MetricTradeCount): float64(taken),
		},
	}, nil
}
