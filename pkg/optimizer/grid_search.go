package optimizer

import (
	"context"
	"math"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
)

// GridSearch evaluates every vector of the simplex lattice with the configured step
type GridSearch struct {
	strategies   []core.StrategyID
	seeds        []fusion.WeightVector
	units        int
	parallelism  int
	targetMetric MetricName
	maximize     bool
	topN         int
	logger       logger.Logger
}

// NewGridSearch creates a grid search optimizer. Steps that do not divide 1
// are rounded to the nearest lattice.
func NewGridSearch(config *Config) (*GridSearch, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	units := 10
	if config.Step > 0 && config.Step <= 1 {
		units = max(1, int(math.Round(1/config.Step)))
	}

	return &GridSearch{
		strategies:   config.Strategies,
		seeds:        config.Seeds,
		units:        units,
		parallelism:  config.Parallelism,
		targetMetric: config.TargetMetric,
		maximize:     config.Maximize,
		topN:         config.TopN,
		logger:       config.Logger,
	}, nil
}

// Optimize evaluates the seeds and the whole lattice
func (g *GridSearch) Optimize(ctx context.Context, evaluator Evaluator) ([]*Result, error) {
	if evaluator == nil {
		return nil, ErrNilEvaluator
	}

	candidates := append(validSeeds(g.seeds), g.lattice()...)
	logf(g.logger, "starting grid search with %d candidates", len(candidates))

	results, err := runEvaluations(ctx, g.logger, evaluator, candidates, g.parallelism)
	if err != nil {
		return nil, err
	}

	results = rank(results, g.targetMetric, g.maximize, g.topN)
	logf(g.logger, "grid search completed with %d results", len(results))
	return results, nil
}

// lattice enumerates every split of units among the strategies
func (g *GridSearch) lattice() []fusion.WeightVector {
	var (
		out   []fusion.WeightVector
		parts = make([]int, len(g.strategies))
		walk  func(pos, left int)
	)

	walk = func(pos, left int) {
		if pos == len(parts)-1 {
			parts[pos] = left
			w := make(fusion.WeightVector, len(parts))
			for i, id := range g.strategies {
				w[id] = float64(parts[i]) / float64(g.units)
			}
			out = append(out, w)
			return
		}
		for n := 0; n <= left; n++ {
			parts[pos] = n
			walk(pos+1, left-n)
		}
	}

	walk(0, g.units)
	return out
}
