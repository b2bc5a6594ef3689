package learning

import (
	"fmt"
	"sync"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
	"github.com/raykavin/stratfuse/pkg/metric"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

const (
	// MinTrades is the history size required before the first learning pass
	MinTrades = 10
	// GrowthFactor is the relative history growth required between passes
	GrowthFactor = 0.25
	// DefaultMaxTrades bounds the retained trade history
	DefaultMaxTrades = 1000

	intervalRounds = 1000
	intervalLevel  = 0.95
)

const (
	ReasonInsufficientData = "insufficient data"
	ReasonAwaitingGrowth   = "awaiting history growth"
)

// Suggestion is the result of a learning pass. When Ready is false the weights
// are empty and Reason explains why no pass ran.
type Suggestion struct {
	Ready     bool                                `json:"ready"`
	Reason    string                              `json:"reason,omitempty"`
	Trades    int                                 `json:"trades"`
	Weights   fusion.WeightVector                 `json:"weights,omitempty"`
	HitRates  map[core.StrategyID]float64         `json:"hit_rates,omitempty"`
	Intervals map[core.StrategyID]metric.Interval `json:"intervals,omitempty"`
}

// LearnerOption configures a Learner
type LearnerOption func(*Learner)

// WithStrategies sets the strategies that receive suggested weights
func WithStrategies(ids ...core.StrategyID) LearnerOption {
	return func(l *Learner) {
		l.strategies = ids
	}
}

// WithMaxTrades bounds the retained trade history, oldest trades are evicted
func WithMaxTrades(n int) LearnerOption {
	return func(l *Learner) {
		if n >= MinTrades {
			l.maxTrades = n
		}
	}
}

// Learner keeps the realized trade history and turns it into suggested weights
type Learner struct {
	mu         sync.Mutex
	log        logger.Logger
	strategies []core.StrategyID
	maxTrades  int
	trades     []TradeOutcome

	// recorded counts every trade ever seen, lastPass is its value at the last pass
	recorded int
	lastPass int
}

// NewLearner creates a learner scoring the default strategy modules
func NewLearner(log logger.Logger, options ...LearnerOption) *Learner {
	l := &Learner{
		log:        log,
		strategies: strategy.IDs,
		maxTrades:  DefaultMaxTrades,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// RecordTrade appends a settled trade to the history
func (l *Learner) RecordTrade(outcome TradeOutcome) error {
	if err := outcome.Validate(); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.trades = append(l.trades, outcome)
	if len(l.trades) > l.maxTrades {
		l.trades = l.trades[len(l.trades)-l.maxTrades:]
	}
	l.recorded++

	l.log.WithFields(map[string]any{
		"instrument": outcome.Instrument,
		"profit":     outcome.ProfitLoss,
		"trades":     l.recorded,
	}).Debug("trade recorded")
	return nil
}

// Trades returns a copy of the retained history
func (l *Learner) Trades() []TradeOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TradeOutcome(nil), l.trades...)
}

// Due reports whether the next call to Learn would run a pass
func (l *Learner) Due() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reason() == ""
}

func (l *Learner) reason() string {
	switch {
	case l.recorded < MinTrades:
		return ReasonInsufficientData
	case l.lastPass > 0 && float64(l.recorded) < float64(l.lastPass)*(1+GrowthFactor):
		return ReasonAwaitingGrowth
	default:
		return ""
	}
}

// Learn runs a pass once the history holds MinTrades trades and again every time
// it grows by GrowthFactor. Below the threshold it returns a suggestion that is
// not ready, never an error.
func (l *Learner) Learn() Suggestion {
	s, _ := l.learn()
	return s
}

// passMark records which pass a learn call counted, so a failed pass can be undone
type passMark struct {
	previous int
	counted  int
}

func (l *Learner) learn() (Suggestion, passMark) {
	l.mu.Lock()
	if reason := l.reason(); reason != "" {
		s := Suggestion{Reason: reason, Trades: l.recorded}
		l.mu.Unlock()
		return s, passMark{}
	}
	mark := passMark{previous: l.lastPass, counted: l.recorded}
	l.lastPass = l.recorded
	trades := append([]TradeOutcome(nil), l.trades...)
	l.mu.Unlock()

	s := Suggest(trades, l.strategies)
	l.log.WithFields(map[string]any{
		"trades":  s.Trades,
		"weights": s.Weights.String(),
	}).Info("learning pass completed")
	return s, mark
}

// revert forgets a pass that could not be applied, unless a later pass was counted since
func (l *Learner) revert(mark passMark) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastPass == mark.counted {
		l.lastPass = mark.previous
	}
}

// Suggest computes hit-rates over trades and normalizes them into weights.
// A strategy that never called a trade correctly gets zero weight, and when no
// strategy did the suggestion is uniform.
func Suggest(trades []TradeOutcome, strategies []core.StrategyID) Suggestion {
	s := Suggestion{
		Ready:     true,
		Trades:    len(trades),
		Weights:   make(fusion.WeightVector, len(strategies)),
		HitRates:  make(map[core.StrategyID]float64, len(strategies)),
		Intervals: make(map[core.StrategyID]metric.Interval, len(strategies)),
	}
	if len(trades) == 0 {
		return s
	}

	for _, id := range strategies {
		hits := make([]float64, len(trades))
		for i, trade := range trades {
			if trade.Correct(id) {
				hits[i] = 1
			}
		}
		rate := metric.Mean(hits)
		s.HitRates[id] = rate
		s.Weights[id] = rate
		s.Intervals[id] = metric.ResampleInterval(hits, metric.Mean, intervalRounds, intervalLevel)
	}

	s.Weights = s.Weights.Normalize()
	return s
}
