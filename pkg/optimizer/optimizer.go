package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
)

var (
	ErrNoStrategies  = errors.New("at least one strategy must be provided")
	ErrNilEvaluator  = errors.New("evaluator cannot be nil")
	ErrInvalidConfig = errors.New("config cannot be nil")
)

// Result represents the outcome of evaluating one candidate weight vector
type Result struct {
	Weights  fusion.WeightVector `json:"weights"`
	Metrics  map[string]float64  `json:"metrics"`
	Duration time.Duration       `json:"duration"`
}

// Metric returns a metric value or zero when the evaluator did not report it
func (r *Result) Metric(name MetricName) float64 {
	if r == nil {
		return 0
	}
	return r.Metrics[string(name)]
}

// MetricName defines standard metric names for optimization
type MetricName string

const (
	// MetricHitRate is the share of decided trades where the fused direction matched the outcome
	MetricHitRate MetricName = "hit_rate"
	// MetricProfit is the realized profit following the fused direction
	MetricProfit MetricName = "profit"
	// MetricTradeCount is the number of trades the candidate took a side on
	MetricTradeCount MetricName = "trade_count"
)

// Evaluator scores a candidate weight vector
type Evaluator interface {
	Evaluate(ctx context.Context, weights fusion.WeightVector) (*Result, error)
}

// Optimizer defines the interface for weight search algorithms
type Optimizer interface {
	// Optimize evaluates candidates and returns them best first
	Optimize(ctx context.Context, evaluator Evaluator) ([]*Result, error)
}

// Config holds configuration for the optimization process
type Config struct {
	// Strategies spanned by candidate vectors
	Strategies []core.StrategyID
	// Seeds are evaluated before any generated candidate, eg: the current weights
	Seeds []fusion.WeightVector
	// Maximum number of generated candidates
	MaxIterations int
	// Number of parallel evaluations
	Parallelism int
	// Grid resolution used by the grid search
	Step   float64
	Logger logger.Logger
	// Target metric to optimize
	TargetMetric MetricName
	// Whether to maximize (true) or minimize (false) the target metric
	Maximize bool
	// Top N results to return, zero keeps all
	TopN int
	// RandSeed fixes the random source, zero uses the clock
	RandSeed int64
}

// NewConfig creates a default configuration
func NewConfig() *Config {
	return &Config{
		MaxIterations: 100,
		Parallelism:   1,
		Step:          0.1,
		TargetMetric:  MetricHitRate,
		Maximize:      true,
		TopN:          5,
	}
}

// WithStrategies adds strategies to the searched space
func (c *Config) WithStrategies(ids ...core.StrategyID) *Config {
	c.Strategies = append(c.Strategies, ids...)
	return c
}

// WithSeeds adds vectors that are always evaluated
func (c *Config) WithSeeds(seeds ...fusion.WeightVector) *Config {
	c.Seeds = append(c.Seeds, seeds...)
	return c
}

// WithMaxIterations sets the maximum number of generated candidates
func (c *Config) WithMaxIterations(iterations int) *Config {
	c.MaxIterations = iterations
	return c
}

// WithParallelism sets the number of parallel evaluations
func (c *Config) WithParallelism(n int) *Config {
	c.Parallelism = n
	return c
}

// WithStep sets the grid resolution
func (c *Config) WithStep(step float64) *Config {
	c.Step = step
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(logger logger.Logger) *Config {
	c.Logger = logger
	return c
}

// WithTargetMetric sets the target metric to optimize
func (c *Config) WithTargetMetric(metric MetricName, maximize bool) *Config {
	c.TargetMetric = metric
	c.Maximize = maximize
	return c
}

// WithTopN sets the number of top results to return
func (c *Config) WithTopN(n int) *Config {
	c.TopN = n
	return c
}

// WithRandSeed fixes the random source for reproducible searches
func (c *Config) WithRandSeed(seed int64) *Config {
	c.RandSeed = seed
	return c
}

func (c *Config) validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if len(c.Strategies) == 0 {
		return ErrNoStrategies
	}
	return nil
}

// ResultSorter sorts optimization results by a specific metric
type ResultSorter struct {
	Results    []*Result
	MetricName string
	Maximize   bool
}

// Len returns the number of results
func (s ResultSorter) Len() int {
	return len(s.Results)
}

// Swap swaps two results
func (s ResultSorter) Swap(i, j int) {
	s.Results[i], s.Results[j] = s.Results[j], s.Results[i]
}

// Less compares two results based on the target metric
func (s ResultSorter) Less(i, j int) bool {
	valueI := s.Results[i].Metrics[s.MetricName]
	valueJ := s.Results[j].Metrics[s.MetricName]

	if s.Maximize {
		return valueI > valueJ
	}
	return valueI < valueJ
}
