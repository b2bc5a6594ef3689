// Package stratfuse scores instrument snapshots with a set of strategy modules,
// fuses them into one decision and learns the fusion weights from settled trades.
package stratfuse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/learning"
	"github.com/raykavin/stratfuse/pkg/logger"
	"github.com/raykavin/stratfuse/pkg/optimizer"
	"github.com/raykavin/stratfuse/pkg/strategy"
	"github.com/raykavin/stratfuse/pkg/telemetry"
)

// DefaultLog is the default logger instance
var DefaultLog logger.Logger

// Engine wires the fusion engine, the learning loop, the characteristics
// registry and persistence together
type Engine struct {
	fusion    *fusion.Engine
	learner   *learning.Learner
	optimizer *learning.Optimizer
	registry  *learning.Registry
	metrics   *telemetry.Metrics

	store       core.Store
	log         logger.Logger
	profile     core.RiskProfile
	modules     []strategy.Module
	weights     fusion.WeightVector
	parallelism int
	historySize int
	maxTrades   int
	interval    time.Duration
	search      *optimizer.Config
	registerer  prometheus.Registerer
}

// New creates an engine. Weights persisted in the store are restored, weights
// given with WithWeights take precedence over them.
func New(ctx context.Context, options ...Option) (*Engine, error) {
	e := &Engine{
		log:       DefaultLog,
		profile:   core.Moderate,
		maxTrades: learning.DefaultMaxTrades,
	}
	for _, option := range options {
		option(e)
	}

	if e.registerer != nil {
		metrics, err := telemetry.New(e.registerer)
		if err != nil {
			return nil, err
		}
		e.metrics = metrics
	}

	e.registry = learning.NewRegistry(e.store, e.log)

	fusionOptions := []fusion.Option{
		fusion.WithRiskProfile(e.profile),
		fusion.WithCharacteristics(e.registry),
	}
	if len(e.modules) > 0 {
		fusionOptions = append(fusionOptions, fusion.WithModules(e.modules...))
	}
	if e.parallelism > 0 {
		fusionOptions = append(fusionOptions, fusion.WithParallelism(e.parallelism))
	}
	if e.historySize > 0 {
		fusionOptions = append(fusionOptions, fusion.WithHistorySize(e.historySize))
	}
	if e.metrics != nil {
		fusionOptions = append(fusionOptions, fusion.WithObserver(e.metrics))
	}
	e.fusion = fusion.NewEngine(e.log, fusionOptions...)

	if err := e.restoreWeights(ctx); err != nil {
		return nil, err
	}

	e.learner = learning.NewLearner(e.log,
		learning.WithStrategies(e.fusion.Weights().IDs()...),
		learning.WithMaxTrades(e.maxTrades),
	)

	loopOptions := []learning.OptimizerOption{
		learning.WithRegistry(e.registry),
		learning.WithInterval(e.interval),
	}
	if e.store != nil {
		loopOptions = append(loopOptions, learning.WithStore(e.store))
	}
	if e.search != nil {
		loopOptions = append(loopOptions, learning.WithSearch(e.search))
	}
	if e.metrics != nil {
		loopOptions = append(loopOptions, learning.WithLearningObserver(e.metrics))
	}
	e.optimizer = learning.NewOptimizer(e.learner, e.fusion, e.log, loopOptions...)

	return e, nil
}

func (e *Engine) restoreWeights(ctx context.Context) error {
	if e.weights != nil {
		if err := e.fusion.SetBaseWeights(e.weights); err != nil {
			return fmt.Errorf("configured weights: %w", err)
		}
		return nil
	}
	if e.store == nil {
		return nil
	}

	w, err := learning.LoadWeights(ctx, e.store)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return nil
	case err != nil:
		e.log.WithError(err).Warn("failed to restore weights, using defaults")
		return nil
	}

	if !sameStrategies(w, e.fusion.Weights()) {
		e.log.WithField("weights", w.String()).Warn("stored weights do not match the strategy modules, ignoring")
		return nil
	}
	return e.fusion.SetBaseWeights(w)
}

func sameStrategies(a, b fusion.WeightVector) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// Analyze scores one snapshot
func (e *Engine) Analyze(ctx context.Context, snap core.Snapshot) (fusion.Decision, error) {
	e.recordSector(ctx, snap)
	return e.fusion.Analyze(ctx, snap)
}

// AnalyzeAll scores independent snapshots in parallel, decisions keep the input order
func (e *Engine) AnalyzeAll(ctx context.Context, snaps []core.Snapshot) ([]fusion.Decision, error) {
	for _, snap := range snaps {
		e.recordSector(ctx, snap)
	}
	return e.fusion.AnalyzeAll(ctx, snaps)
}

func (e *Engine) recordSector(ctx context.Context, snap core.Snapshot) {
	if snap.Instrument == "" {
		return
	}
	if err := e.registry.SetSector(ctx, snap.Instrument, snap.Sector); err != nil {
		e.log.WithError(err).WithField("instrument", snap.Instrument).Warn("failed to store sector")
	}
}

// RecordTrade feeds a settled trade to the learning engine
func (e *Engine) RecordTrade(ctx context.Context, outcome learning.TradeOutcome) error {
	return e.optimizer.RecordTrade(ctx, outcome)
}

// Settle records the outcome of a decision closed at the exit price
func (e *Engine) Settle(ctx context.Context, d fusion.Decision, exit float64, closedAt time.Time, bars core.Dataframe) error {
	return e.RecordTrade(ctx, learning.OutcomeFromDecision(d, exit, closedAt, bars))
}

// Learn runs a learning pass now instead of waiting for the background loop
func (e *Engine) Learn(ctx context.Context) (learning.Suggestion, error) {
	return e.optimizer.Pass(ctx)
}

// Run runs the background learning loop until ctx is done
func (e *Engine) Run(ctx context.Context) error {
	return e.optimizer.Run(ctx)
}

// Weights returns the current base weights
func (e *Engine) Weights() fusion.WeightVector {
	return e.fusion.Weights()
}

// SetWeights publishes and persists new base weights
func (e *Engine) SetWeights(ctx context.Context, w fusion.WeightVector) error {
	if err := e.fusion.SetBaseWeights(w); err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}
	return learning.SaveWeights(ctx, e.store, w)
}

// Characteristics returns the learned profile of an instrument
func (e *Engine) Characteristics(ctx context.Context, instrument string) core.Characteristics {
	return e.registry.Characteristics(ctx, instrument)
}

// History returns the retained decisions of an instrument, oldest first
func (e *Engine) History(instrument string) []fusion.Decision {
	return e.fusion.History(instrument)
}

// Trades returns the retained trade history
func (e *Engine) Trades() []learning.TradeOutcome {
	return e.learner.Trades()
}

// State returns the lifecycle phase of the fusion engine
func (e *Engine) State() fusion.State {
	return e.fusion.State()
}

// Close releases the store when it holds resources
func (e *Engine) Close() error {
	if closer, ok := e.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
