// Package telemetry exposes engine and learning activity as Prometheus metrics
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/learning"
)

const namespace = "stratfuse"

// Metrics implements fusion.Observer and learning.Observer
type Metrics struct {
	decisions      *prometheus.CounterVec
	scores         prometheus.Histogram
	moduleFailures *prometheus.CounterVec
	weights        *prometheus.GaugeVec
	state          prometheus.Gauge
	transitions    *prometheus.CounterVec
	learningPasses prometheus.Counter
	learnedTrades  prometheus.Gauge
	hitRates       *prometheus.GaugeVec
}

var (
	_ fusion.Observer   = (*Metrics)(nil)
	_ learning.Observer = (*Metrics)(nil)
)

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fusion",
				Name:      "decisions_total",
				Help:      "Decisions by action",
			},
			[]string{"action"},
		),
		scores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "fusion",
				Name:      "decision_score",
				Help:      "Fused decision scores",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
		moduleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fusion",
				Name:      "module_failures_total",
				Help:      "Strategy modules that failed and were scored neutral",
			},
			[]string{"module"},
		),
		weights: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "fusion",
				Name:      "base_weight",
				Help:      "Current base weight per strategy module",
			},
			[]string{"module"},
		),
		state: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "fusion",
				Name:      "state",
				Help:      "Engine lifecycle state (0 scoring, 1 decided, 2 outcome recorded, 3 optimizing)",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fusion",
				Name:      "transitions_total",
				Help:      "Engine state transitions",
			},
			[]string{"from", "to"},
		),
		learningPasses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "learning",
				Name:      "passes_total",
				Help:      "Learning passes applied to the base weights",
			},
		),
		learnedTrades: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "learning",
				Name:      "trades",
				Help:      "Trades considered by the last learning pass",
			},
		),
		hitRates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "learning",
				Name:      "hit_rate",
				Help:      "Hit-rate per strategy module at the last learning pass",
			},
			[]string{"module"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.decisions, m.scores, m.moduleFailures, m.weights, m.state,
		m.transitions, m.learningPasses, m.learnedTrades, m.hitRates,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) ObserveDecision(d fusion.Decision) {
	m.decisions.WithLabelValues(d.Label()).Inc()
	m.scores.Observe(d.Score)
}

func (m *Metrics) ObserveModuleFailure(_ string, id core.StrategyID) {
	m.moduleFailures.WithLabelValues(string(id)).Inc()
}

func (m *Metrics) ObserveWeights(w fusion.WeightVector) {
	m.weights.Reset()
	for id, v := range w {
		m.weights.WithLabelValues(string(id)).Set(v)
	}
}

func (m *Metrics) ObserveTransition(from, to fusion.State) {
	m.state.Set(float64(to))
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) ObserveLearningPass(s learning.Suggestion, applied fusion.WeightVector) {
	m.learningPasses.Inc()
	m.learnedTrades.Set(float64(s.Trades))
	for id, rate := range s.HitRates {
		m.hitRates.WithLabelValues(string(id)).Set(rate)
	}
	m.ObserveWeights(applied)
}
