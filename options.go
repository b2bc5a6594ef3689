package stratfuse

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
	"github.com/raykavin/stratfuse/pkg/optimizer"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

// Option is a functional option for configuring an Engine
type Option func(*Engine)

// WithLogger replaces DefaultLog
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithStore persists weights and instrument characteristics, without a store
// everything is kept in memory
func WithStore(store core.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRiskProfile selects the action thresholds of the strategy modules
func WithRiskProfile(profile core.RiskProfile) Option {
	return func(e *Engine) {
		e.profile = profile
	}
}

// WithWeights sets the base weights, overriding persisted ones
func WithWeights(w fusion.WeightVector) Option {
	return func(e *Engine) {
		e.weights = w.Clone()
	}
}

// WithModules replaces the default strategy modules
func WithModules(modules ...strategy.Module) Option {
	return func(e *Engine) {
		e.modules = modules
	}
}

// WithParallelism bounds the instruments scored concurrently
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithHistorySize bounds the decisions kept per instrument
func WithHistorySize(n int) Option {
	return func(e *Engine) {
		e.historySize = n
	}
}

// WithMaxTrades bounds the trade history used for learning
func WithMaxTrades(n int) Option {
	return func(e *Engine) {
		e.maxTrades = n
	}
}

// WithLearningInterval runs a learning pass periodically besides trade triggers
func WithLearningInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.interval = interval
	}
}

// WithWeightSearch refines learned weights with a random search over the trade history
func WithWeightSearch(config *optimizer.Config) Option {
	return func(e *Engine) {
		e.search = config
	}
}

// WithMetrics registers Prometheus collectors on reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}
