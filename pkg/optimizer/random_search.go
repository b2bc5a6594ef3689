package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
)

// RandomSearch samples weight vectors uniformly from the simplex
type RandomSearch struct {
	strategies    []core.StrategyID
	seeds         []fusion.WeightVector
	maxIterations int
	parallelism   int
	targetMetric  MetricName
	maximize      bool
	topN          int
	logger        logger.Logger
	rng           *rand.Rand
}

// NewRandomSearch creates a new random search optimizer
func NewRandomSearch(config *Config) (*RandomSearch, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	seed := config.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &RandomSearch{
		strategies:    config.Strategies,
		seeds:         config.Seeds,
		maxIterations: config.MaxIterations,
		parallelism:   config.Parallelism,
		targetMetric:  config.TargetMetric,
		maximize:      config.Maximize,
		topN:          config.TopN,
		logger:        config.Logger,
		rng:           rand.New(rand.NewSource(seed)),
	}, nil
}

// Optimize evaluates the seeds plus maxIterations random vectors
func (r *RandomSearch) Optimize(ctx context.Context, evaluator Evaluator) ([]*Result, error) {
	if evaluator == nil {
		return nil, ErrNilEvaluator
	}

	candidates := validSeeds(r.seeds)
	for i := 0; i < r.maxIterations; i++ {
		candidates = append(candidates, r.sample())
	}

	logf(r.logger, "starting random search with %d candidates", len(candidates))

	results, err := runEvaluations(ctx, r.logger, evaluator, candidates, r.parallelism)
	if err != nil {
		return nil, err
	}

	results = rank(results, r.targetMetric, r.maximize, r.topN)
	logf(r.logger, "random search completed with %d results", len(results))
	return results, nil
}

// sample draws from a flat Dirichlet distribution by normalizing exponentials
func (r *RandomSearch) sample() fusion.WeightVector {
	w := make(fusion.WeightVector, len(r.strategies))
	for _, id := range r.strategies {
		w[id] = r.rng.ExpFloat64()
	}
	return w.Normalize()
}

func validSeeds(seeds []fusion.WeightVector) []fusion.WeightVector {
	out := make([]fusion.WeightVector, 0, len(seeds))
	for _, s := range seeds {
		if s.Validate() == nil {
			out = append(out, s.Clone())
		}
	}
	return out
}

// rank sorts results best first, keeping candidate order among ties, and trims to topN
func rank(results []*Result, target MetricName, maximize bool, topN int) []*Result {
	sort.Stable(ResultSorter{
		Results:    results,
		MetricName: string(target),
		Maximize:   maximize,
	})
	if topN > 0 && topN < len(results) {
		results = results[:topN]
	}
	return results
}

// runEvaluations evaluates candidates concurrently and returns the results in
// candidate order
func runEvaluations(
	ctx context.Context,
	log logger.Logger,
	evaluator Evaluator,
	candidates []fusion.WeightVector,
	parallelism int,
) ([]*Result, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	var (
		results   = make([]*Result, len(candidates))
		wg        sync.WaitGroup
		errCh     = make(chan error, 1)
		semaphore = make(chan struct{}, parallelism)
	)

	for i, weights := range candidates {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case err := <-errCh:
			wg.Wait()
			return nil, err
		default:
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(index int, weights fusion.WeightVector) {
			defer wg.Done()
			defer func() { <-semaphore }()

			start := time.Now()
			result, err := evaluator.Evaluate(ctx, weights)
			if err != nil {
				select {
				case errCh <- fmt.Errorf("evaluation error: %w", err):
				default:
				}
				return
			}
			if result.Weights == nil {
				result.Weights = weights
			}
			if result.Duration == 0 {
				result.Duration = time.Since(start)
			}
			results[index] = result

			if log != nil {
				log.Tracef("evaluated candidate %d/%d %s", index+1, len(candidates), weights)
			}
		}(i, weights)
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	return results, nil
}

// logf logs a message if a logger is configured
func logf(log logger.Logger, format string, args ...any) {
	if log != nil {
		log.Debugf(format, args...)
	}
}
