// Package fusion combines the strategy module scores of a snapshot into a single
// decision using an adaptive weight vector.
package fusion

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/indicator"
	"github.com/raykavin/stratfuse/pkg/logger"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

// Option configures an Engine
type Option func(*Engine)

// WithModules replaces the strategy modules, by default the four moderate modules
func WithModules(modules ...strategy.Module) Option {
	return func(e *Engine) {
		e.modules = modules
	}
}

// WithRiskProfile builds the default modules for a risk profile
func WithRiskProfile(profile core.RiskProfile) Option {
	return func(e *Engine) {
		e.modules = strategy.Modules(profile)
	}
}

// WithCharacteristics sets the source of instrument profiles
func WithCharacteristics(provider CharacteristicsProvider) Option {
	return func(e *Engine) {
		e.characteristics = provider
	}
}

// WithObserver registers an observer of decisions and weight changes
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithHistorySize bounds the decisions kept per instrument
func WithHistorySize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.historySize = size
		}
	}
}

// WithParallelism bounds the instruments scored at once by AnalyzeAll
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithClock overrides the decision timestamp source
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// Engine scores snapshots with every module and fuses the results. It is safe
// for concurrent use: the base weights are swapped atomically and each
// instrument history has its own lock.
type Engine struct {
	weights atomic.Pointer[WeightVector]
	state   atomic.Int32

	modules         []strategy.Module
	controller      *strategy.Controller
	characteristics CharacteristicsProvider
	observer        Observer
	log             logger.Logger

	historyMu   sync.Mutex
	histories   map[string]*history
	historySize int
	parallelism int
	clock       func() time.Time
}

// NewEngine creates a fusion engine with the default weights
func NewEngine(log logger.Logger, options ...Option) *Engine {
	e := &Engine{
		modules:         strategy.Modules(core.Moderate),
		characteristics: defaultCharacteristics{},
		observer:        nopObserver{},
		log:             log,
		histories:       make(map[string]*history),
		historySize:     DefaultHistorySize,
		parallelism:     runtime.GOMAXPROCS(0),
		clock:           time.Now,
	}
	for _, option := range options {
		option(e)
	}

	e.controller = strategy.NewController(log, e.modules...)
	base := DefaultWeights()
	if len(e.modules) > 0 && !coversModules(base, e.modules) {
		base = uniformWeights(e.modules)
	}
	e.weights.Store(&base)
	return e
}

func coversModules(w WeightVector, modules []strategy.Module) bool {
	for _, m := range modules {
		if _, ok := w[m.ID()]; !ok {
			return false
		}
	}
	return len(w) == len(modules)
}

func uniformWeights(modules []strategy.Module) WeightVector {
	w := make(WeightVector, len(modules))
	for _, m := range modules {
		w[m.ID()] = 1 / float64(len(modules))
	}
	return w
}

// Weights returns a copy of the current base weights
func (e *Engine) Weights() WeightVector {
	return e.weights.Load().Clone()
}

// SetBaseWeights validates and publishes a new base vector. An invalid vector is
// rejected and the previous weights are retained.
func (e *Engine) SetBaseWeights(w WeightVector) error {
	if err := w.Validate(); err != nil {
		e.log.WithError(err).Warn("rejected base weights")
		return err
	}

	next := w.Clone()
	prev := e.weights.Swap(&next)
	e.log.WithFields(map[string]any{
		"previous": prev.String(),
		"current":  next.String(),
	}).Info("base weights updated")
	e.observer.ObserveWeights(next.Clone())
	return nil
}

// UpdateBaseWeights derives the next base vector from the current one and publishes
// it only when no other update landed in between, otherwise update runs again on
// the newer weights. An invalid result is rejected and the weights are retained.
func (e *Engine) UpdateBaseWeights(update func(current WeightVector) WeightVector) (WeightVector, error) {
	for {
		prev := e.weights.Load()
		next := update(prev.Clone())
		if err := next.Validate(); err != nil {
			e.log.WithError(err).Warn("rejected base weights")
			return nil, err
		}

		next = next.Clone()
		if !e.weights.CompareAndSwap(prev, &next) {
			e.log.Debug("base weights changed during update, retrying")
			continue
		}
		e.log.WithFields(map[string]any{
			"previous": prev.String(),
			"current":  next.String(),
		}).Info("base weights updated")
		e.observer.ObserveWeights(next.Clone())
		return next.Clone(), nil
	}
}

// State returns the current lifecycle phase
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) transition(to State) {
	from := State(e.state.Swap(int32(to)))
	if from == to && to != StateOutcomeRecorded {
		return
	}
	fields := map[string]any{"from": from.String(), "to": to.String()}
	if !from.CanTransition(to) {
		e.log.WithFields(fields).Debug("out of order engine transition")
	} else {
		e.log.WithFields(fields).Trace("engine transition")
	}
	e.observer.ObserveTransition(from, to)
}

// RecordOutcome marks that an executed decision has been settled
func (e *Engine) RecordOutcome() { e.transition(StateOutcomeRecorded) }

// BeginOptimization marks the start of a learning pass
func (e *Engine) BeginOptimization() { e.transition(StateOptimizing) }

// EndOptimization returns the engine to scoring after a learning pass
func (e *Engine) EndOptimization() { e.transition(StateScoring) }

// Analyze scores one snapshot and appends the decision to the instrument history.
// Short series are never an error, they produce neutral scores.
func (e *Engine) Analyze(ctx context.Context, snap core.Snapshot) (Decision, error) {
	if err := snap.Validate(); err != nil {
		return Decision{}, fmt.Errorf("analyze %q: %w", snap.Instrument, err)
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	e.transition(StateScoring)

	base := *e.weights.Load()
	ch := e.characteristics.Characteristics(ctx, snap.Instrument)

	market, ok := indicator.Volatility(snap.Bars.Close.Values())
	if !ok {
		market = ch.Volatility
	}
	weights := Adjust(base, ch, market)

	results := e.controller.Run(snap)
	for _, r := range results {
		if r.Failed {
			e.observer.ObserveModuleFailure(snap.Instrument, r.ID)
		}
	}

	score, contributions := Aggregate(results, weights)
	buys, sells := Tally(contributions)
	action, weak := Classify(score, buys, sells)

	decision := Decision{
		Instrument:    snap.Instrument,
		Time:          e.clock(),
		Action:        action,
		Weak:          weak,
		Score:         score,
		Allocation:    Allocation(action, weak),
		Rationale:     Rationale(action, weak, score, contributions),
		Contributions: contributions,
		Weights:       weights,
		BuySignals:    buys,
		SellSignals:   sells,
		Volatility:    market,
		Price:         snap.LastPrice(),
	}

	e.historyFor(snap.Instrument).append(decision)
	e.transition(StateDecided)
	e.observer.ObserveDecision(decision)

	e.log.WithFields(map[string]any{
		"instrument": decision.Instrument,
		"action":     decision.Label(),
		"score":      fmt.Sprintf("%.2f", decision.Score),
		"allocation": decision.Allocation,
	}).Debug("decision")

	return decision, nil
}

// AnalyzeAll scores independent instruments in parallel. Decisions keep the order
// of the snapshots, the first error cancels the remaining work.
func (e *Engine) AnalyzeAll(ctx context.Context, snaps []core.Snapshot) ([]Decision, error) {
	decisions := make([]Decision, len(snaps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, snap := range snaps {
		i, snap := i, snap
		g.Go(func() error {
			d, err := e.Analyze(ctx, snap)
			if err != nil {
				return err
			}
			decisions[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return decisions, nil
}

func (e *Engine) historyFor(instrument string) *history {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	h, ok := e.histories[instrument]
	if !ok {
		h = newHistory(e.historySize)
		e.histories[instrument] = h
	}
	return h
}

// History returns the bounded decision log of an instrument, oldest first
func (e *Engine) History(instrument string) []Decision {
	return e.historyFor(instrument).list()
}

// LastDecision returns the most recent decision of an instrument
func (e *Engine) LastDecision(instrument string) (Decision, bool) {
	return e.historyFor(instrument).last()
}

// Instruments returns the instruments with a decision history
func (e *Engine) Instruments() []string {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	out := make([]string, 0, len(e.histories))
	for k := range e.histories {
		out = append(out, k)
	}
	return out
}
