package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
	"github.com/raykavin/stratfuse/pkg/optimizer"
)

// WeightTarget is the engine whose base weights are learned
type WeightTarget interface {
	Weights() fusion.WeightVector
	UpdateBaseWeights(update func(current fusion.WeightVector) fusion.WeightVector) (fusion.WeightVector, error)
	RecordOutcome()
	BeginOptimization()
	EndOptimization()
}

// Observer receives the result of every learning pass that ran
type Observer interface {
	ObserveLearningPass(s Suggestion, applied fusion.WeightVector)
}

type nopObserver struct{}

func (nopObserver) ObserveLearningPass(Suggestion, fusion.WeightVector) {}

// OptimizerOption configures an Optimizer
type OptimizerOption func(*Optimizer)

// WithRegistry updates instrument characteristics on every recorded trade
func WithRegistry(registry *Registry) OptimizerOption {
	return func(o *Optimizer) {
		o.registry = registry
	}
}

// WithStore persists the applied weights after every pass
func WithStore(store core.Store) OptimizerOption {
	return func(o *Optimizer) {
		o.store = store
	}
}

// WithInterval runs a pass periodically besides the trade triggers
func WithInterval(interval time.Duration) OptimizerOption {
	return func(o *Optimizer) {
		o.interval = interval
	}
}

// WithSearch refines the hit-rate suggestion with a weight search replaying
// the trade history. The search is seeded with the suggestion and the current
// weights, its best vector replaces the suggestion.
func WithSearch(config *optimizer.Config) OptimizerOption {
	return func(o *Optimizer) {
		o.search = config
	}
}

// WithLearningObserver sets the receiver of learning pass results
func WithLearningObserver(observer Observer) OptimizerOption {
	return func(o *Optimizer) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// Optimizer feeds settled trades to the learner and publishes learned weights
// into the engine out of the scoring path
type Optimizer struct {
	learner  *Learner
	target   WeightTarget
	registry *Registry
	store    core.Store
	search   *optimizer.Config
	observer Observer
	interval time.Duration
	trigger  chan struct{}
	log      logger.Logger
}

// NewOptimizer creates the learning loop for target
func NewOptimizer(learner *Learner, target WeightTarget, log logger.Logger, options ...OptimizerOption) *Optimizer {
	o := &Optimizer{
		learner:  learner,
		target:   target,
		observer: nopObserver{},
		trigger:  make(chan struct{}, 1),
		log:      log,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// RecordTrade records a settled trade, updates the instrument profile and wakes
// the loop when a pass is due
func (o *Optimizer) RecordTrade(ctx context.Context, outcome TradeOutcome) error {
	if err := o.learner.RecordTrade(outcome); err != nil {
		return err
	}
	o.target.RecordOutcome()

	var err error
	if o.registry != nil {
		_, err = o.registry.Update(ctx, outcome)
	}

	if o.learner.Due() {
		select {
		case o.trigger <- struct{}{}:
		default:
		}
	}
	return err
}

// Run processes triggers until ctx is done
func (o *Optimizer) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if o.interval > 0 {
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.trigger:
		case <-tick:
		}

		if _, err := o.Pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.log.WithError(err).Error("learning pass failed")
		}
	}
}

// Pass runs one learning pass and applies the smoothed result. A pass that is
// not due returns the not ready suggestion and leaves the weights untouched. A
// pass that fails is not counted, the next one runs without waiting for growth.
func (o *Optimizer) Pass(ctx context.Context) (s Suggestion, err error) {
	s, mark := o.learner.learn()
	if !s.Ready {
		o.log.WithField("reason", s.Reason).Trace("learning pass skipped")
		return s, nil
	}
	defer func() {
		if err != nil {
			o.learner.revert(mark)
		}
	}()

	o.target.BeginOptimization()
	defer o.target.EndOptimization()

	suggested := s.Weights
	if o.search != nil {
		refined, err := o.refine(ctx, o.target.Weights(), suggested)
		if err != nil {
			return s, err
		}
		suggested = refined
	}

	// blended against the weights current at publish time so a concurrent
	// SetBaseWeights is never overwritten
	next, err := o.target.UpdateBaseWeights(func(current fusion.WeightVector) fusion.WeightVector {
		return ApplyWeightOptimization(current, suggested)
	})
	if err != nil {
		return s, fmt.Errorf("apply learned weights: %w", err)
	}
	o.observer.ObserveLearningPass(s, next)

	if o.store != nil {
		if err := SaveWeights(ctx, o.store, next); err != nil {
			return s, fmt.Errorf("save learned weights: %w", err)
		}
	}
	return s, nil
}

func (o *Optimizer) refine(ctx context.Context, current, suggested fusion.WeightVector) (fusion.WeightVector, error) {
	config := *o.search
	config.Strategies = suggested.IDs()
	config.Seeds = []fusion.WeightVector{suggested, current}
	config.Logger = o.log
	config.TopN = 1

	search, err := optimizer.NewRandomSearch(&config)
	if err != nil {
		return nil, err
	}
	results, err := search.Optimize(ctx, NewReplayEvaluator(o.learner.Trades()))
	if err != nil {
		return nil, fmt.Errorf("weight search: %w", err)
	}
	if len(results) == 0 {
		return suggested, nil
	}
	return results[0].Weights, nil
}
