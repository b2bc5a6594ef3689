package optimizer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
)

const (
	alpha core.StrategyID = "alpha"
	beta  core.StrategyID = "beta"
	gamma core.StrategyID = "gamma"
)

// preferAlpha scores a vector by the weight it gives to alpha
type preferAlpha struct {
	calls atomic.Int64
	fail  bool
}

func (p *preferAlpha) Evaluate(_ context.Context, w fusion.WeightVector) (*Result, error) {
	p.calls.Add(1)
	if p.fail {
		return nil, errors.New("boom")
	}
	return &Result{
		Metrics: map[string]float64{
			string(MetricHitRate):    w[alpha],
			string(MetricTradeCount): 10,
		},
	}, nil
}

func TestConfigValidation(t *testing.T) {
	_, err := NewRandomSearch(nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewRandomSearch(NewConfig())
	require.ErrorIs(t, err, ErrNoStrategies)

	_, err = NewGridSearch(NewConfig())
	require.ErrorIs(t, err, ErrNoStrategies)
}

func TestRandomSearch(t *testing.T) {
	config := NewConfig().
		WithStrategies(alpha, beta, gamma).
		WithMaxIterations(50).
		WithParallelism(4).
		WithTopN(5).
		WithRandSeed(7)

	search, err := NewRandomSearch(config)
	require.NoError(t, err)

	evaluator := &preferAlpha{}
	results, err := search.Optimize(context.Background(), evaluator)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.EqualValues(t, 50, evaluator.calls.Load())

	for i, r := range results {
		require.NoError(t, r.Weights.Validate())
		assert.Len(t, r.Weights, 3)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Metric(MetricHitRate), r.Metric(MetricHitRate))
		}
	}
}

func TestRandomSearchIsReproducible(t *testing.T) {
	run := func() []*Result {
		search, err := NewRandomSearch(NewConfig().WithStrategies(alpha, beta).WithMaxIterations(20).WithRandSeed(42))
		require.NoError(t, err)
		results, err := search.Optimize(context.Background(), &preferAlpha{})
		require.NoError(t, err)
		return results
	}

	first, second := run(), run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Weights, second[i].Weights)
	}
}

func TestRandomSearchEvaluatesSeeds(t *testing.T) {
	seed := fusion.WeightVector{alpha: 1, beta: 0}
	invalid := fusion.WeightVector{alpha: 0.9, beta: 0.9}

	search, err := NewRandomSearch(NewConfig().
		WithStrategies(alpha, beta).
		WithSeeds(seed, invalid).
		WithMaxIterations(3).
		WithTopN(0).
		WithRandSeed(1))
	require.NoError(t, err)

	evaluator := &preferAlpha{}
	results, err := search.Optimize(context.Background(), evaluator)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.EqualValues(t, 4, evaluator.calls.Load())
	assert.Equal(t, seed, results[0].Weights)
}

func TestGridSearch(t *testing.T) {
	search, err := NewGridSearch(NewConfig().
		WithStrategies(alpha, beta, gamma).
		WithStep(0.5).
		WithTopN(0))
	require.NoError(t, err)

	assert.Len(t, search.lattice(), 6)

	results, err := search.Optimize(context.Background(), &preferAlpha{})
	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.Equal(t, 1.0, results[0].Weights[alpha])
	assert.Equal(t, 0.0, results[len(results)-1].Weights[alpha])
	for _, r := range results {
		assert.NoError(t, r.Weights.Validate())
	}
}

func TestGridSearchDefaultStep(t *testing.T) {
	search, err := NewGridSearch(NewConfig().WithStrategies(alpha, beta, gamma, "delta").WithStep(0))
	require.NoError(t, err)
	assert.Len(t, search.lattice(), 286)
}

func TestMinimize(t *testing.T) {
	search, err := NewGridSearch(NewConfig().
		WithStrategies(alpha, beta).
		WithStep(0.25).
		WithTargetMetric(MetricHitRate, false).
		WithTopN(1))
	require.NoError(t, err)

	results, err := search.Optimize(context.Background(), &preferAlpha{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Weights[alpha])
}

func TestEvaluationErrors(t *testing.T) {
	search, err := NewRandomSearch(NewConfig().WithStrategies(alpha, beta).WithMaxIterations(10).WithRandSeed(3))
	require.NoError(t, err)

	_, err = search.Optimize(context.Background(), nil)
	require.ErrorIs(t, err, ErrNilEvaluator)

	_, err = search.Optimize(context.Background(), &preferAlpha{fail: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = search.Optimize(ctx, &preferAlpha{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteResultsCSV(t *testing.T) {
	results := []*Result{
		{Weights: fusion.WeightVector{alpha: 0.75, beta: 0.25}, Metrics: map[string]float64{"hit_rate": 0.8}},
		{Weights: fusion.WeightVector{alpha: 0.25, beta: 0.75}, Metrics: map[string]float64{"hit_rate": 0.4}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "rank,duration,alpha,beta,hit_rate", lines[0])
	assert.Equal(t, "1,0s,0.7500,0.2500,0.8000", lines[1])
	assert.Equal(t, "2,0s,0.2500,0.7500,0.4000", lines[2])
}

func TestMergeResults(t *testing.T) {
	a := []*Result{{}, {}}
	b := []*Result{{}}
	assert.Len(t, MergeResults(a, b), 3)
	assert.Empty(t, MergeResults())
}
