package fusion

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/logger/zerolog"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

type fixedModule struct {
	id    core.StrategyID
	score float64
}

func (m fixedModule) ID() core.StrategyID { return m.id }

func (m fixedModule) Analyze(core.Snapshot) strategy.Result {
	return strategy.Result{
		ID:     m.id,
		Score:  m.score,
		Action: strategy.ThresholdsFor(core.Moderate).Action(m.score),
	}
}

type panicModule struct{ id core.StrategyID }

func (m panicModule) ID() core.StrategyID { return m.id }

func (m panicModule) Analyze(core.Snapshot) strategy.Result { panic("boom") }

type recorder struct {
	mu          sync.Mutex
	decisions   int
	failures    []core.StrategyID
	weights     int
	transitions []State
}

func (r *recorder) ObserveDecision(Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions++
}

func (r *recorder) ObserveModuleFailure(_ string, id core.StrategyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, id)
}

func (r *recorder) ObserveWeights(WeightVector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights++
}

func (r *recorder) ObserveTransition(_, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, to)
}

func bars(instrument string, closes ...float64) core.Snapshot {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, len(closes))
	for i, c := range closes {
		candles[i] = core.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 100,
		}
	}
	return core.NewSnapshot(instrument, candles)
}

func trend(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestEngine_ShortSeriesIsNeutral(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	d, err := engine.Analyze(context.Background(), bars("SHORT", 10, 10.1, 10.2, 10.1, 10.3))
	require.NoError(t, err)

	assert.InDelta(t, 50, d.Score, 1e-9)
	assert.Equal(t, core.ActionHold, d.Action)
	assert.Zero(t, d.Allocation)
	require.Len(t, d.Contributions, 4)
	for _, c := range d.Contributions {
		assert.Equal(t, strategy.NeutralScore, c.Score, c.ID)
		assert.False(t, c.Failed, c.ID)
	}
	assert.NoError(t, d.Weights.Validate())
}

func TestEngine_InvalidSnapshot(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	_, err := engine.Analyze(context.Background(), bars("", 1, 2, 3))
	assert.ErrorIs(t, err, core.ErrEmptyInstrument)

	snap := bars("BAD", 1, 2, 3)
	snap.Bars.Time[2] = snap.Bars.Time[0]
	_, err = engine.Analyze(context.Background(), snap)
	assert.ErrorIs(t, err, core.ErrUnorderedBars)
}

func TestEngine_SetBaseWeights(t *testing.T) {
	obs := &recorder{}
	engine := NewEngine(zerolog.Nop(), WithObserver(obs))
	before := engine.Weights()

	err := engine.SetBaseWeights(WeightVector{strategy.Control: 0.7, strategy.Pattern: 0.7})
	assert.ErrorIs(t, err, ErrInvalidWeights)
	assert.Equal(t, before, engine.Weights())

	err = engine.SetBaseWeights(WeightVector{strategy.Control: 1.1, strategy.Pattern: -0.1})
	assert.ErrorIs(t, err, ErrInvalidWeights)
	assert.Equal(t, before, engine.Weights())
	assert.Zero(t, obs.weights)

	next := WeightVector{
		strategy.Control:   0.4,
		strategy.Pattern:   0.2,
		strategy.Technical: 0.2,
		strategy.Momentum:  0.2,
	}
	require.NoError(t, engine.SetBaseWeights(next))
	assert.Equal(t, next, engine.Weights())
	assert.Equal(t, 1, obs.weights)

	// callers cannot mutate the published vector
	next[strategy.Control] = 5
	assert.Equal(t, 0.4, engine.Weights()[strategy.Control])
}

func TestEngine_UpdateBaseWeightsRetriesOnConcurrentChange(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	manual := WeightVector{
		strategy.Control:   0.4,
		strategy.Pattern:   0.2,
		strategy.Technical: 0.2,
		strategy.Momentum:  0.2,
	}

	var seen []WeightVector
	next, err := engine.UpdateBaseWeights(func(current WeightVector) WeightVector {
		seen = append(seen, current)
		if len(seen) == 1 {
			require.NoError(t, engine.SetBaseWeights(manual))
		}
		current[strategy.Control] += 0.1
		current[strategy.Pattern] -= 0.1
		return current
	})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, DefaultWeights(), seen[0])
	assert.Equal(t, manual, seen[1])
	assert.InDelta(t, 0.5, next[strategy.Control], 1e-12)
	assert.InDelta(t, 0.1, next[strategy.Pattern], 1e-12)
	assert.Equal(t, next, engine.Weights())

	_, err = engine.UpdateBaseWeights(func(current WeightVector) WeightVector {
		current[strategy.Control] = 2
		return current
	})
	assert.ErrorIs(t, err, ErrInvalidWeights)
	assert.Equal(t, next, engine.Weights())
}

func TestEngine_ModuleFailureIsIsolated(t *testing.T) {
	obs := &recorder{}
	engine := NewEngine(zerolog.Nop(),
		WithObserver(obs),
		WithModules(
			fixedModule{id: strategy.Control, score: 90},
			panicModule{id: strategy.Pattern},
			fixedModule{id: strategy.Technical, score: 90},
			fixedModule{id: strategy.Momentum, score: 90},
		),
	)

	d, err := engine.Analyze(context.Background(), bars("ISO", trend(10, 100, 0)...))
	require.NoError(t, err)

	require.Len(t, d.Contributions, 4)
	assert.True(t, d.Contributions[1].Failed)
	assert.Equal(t, strategy.NeutralScore, d.Contributions[1].Score)
	assert.Equal(t, []core.StrategyID{strategy.Pattern}, obs.failures)

	w := Adjust(DefaultWeights(), core.NewCharacteristics("ISO"), core.VolatilityMedium)
	expected := w[strategy.Control]*90 + w[strategy.Pattern]*50 + w[strategy.Technical]*90 + w[strategy.Momentum]*90
	assert.InDelta(t, expected, d.Score, 1e-9)
	assert.Equal(t, core.ActionStrongBuy, d.Action)
	assert.Equal(t, StrongAllocation, d.Allocation)
	assert.Equal(t, 3, d.BuySignals)
	assert.Contains(t, d.Rationale, "strong_buy")
}

func TestEngine_CustomModulesGetUniformWeights(t *testing.T) {
	engine := NewEngine(zerolog.Nop(), WithModules(
		fixedModule{id: "a", score: 70},
		fixedModule{id: "b", score: 30},
	))

	w := engine.Weights()
	assert.Equal(t, WeightVector{"a": 0.5, "b": 0.5}, w)

	d, err := engine.Analyze(context.Background(), bars("X", 1, 2))
	require.NoError(t, err)
	assert.InDelta(t, 50, d.Score, 1e-9)
	// one buy and one sell signal, no tie-break
	assert.Equal(t, core.ActionHold, d.Action)
}

func TestEngine_WeakSignal(t *testing.T) {
	engine := NewEngine(zerolog.Nop(), WithModules(
		fixedModule{id: "a", score: 62},
		fixedModule{id: "b", score: 62},
		fixedModule{id: "c", score: 26},
	))

	d, err := engine.Analyze(context.Background(), bars("W", 1, 2))
	require.NoError(t, err)

	assert.InDelta(t, 50, d.Score, 1e-9)
	assert.Equal(t, core.ActionBuy, d.Action)
	assert.True(t, d.Weak)
	assert.Equal(t, WeakAllocation, d.Allocation)
}

func TestEngine_HistoryIsBounded(t *testing.T) {
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(zerolog.Nop(),
		WithModules(fixedModule{id: "a", score: 50}),
		WithClock(func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		}),
	)

	for i := 0; i < DefaultHistorySize+20; i++ {
		_, err := engine.Analyze(context.Background(), bars("H", 1, 2, 3))
		require.NoError(t, err)
	}

	h := engine.History("H")
	require.Len(t, h, DefaultHistorySize)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 21, 0, 0, time.UTC), h[0].Time)

	last, ok := engine.LastDecision("H")
	require.True(t, ok)
	assert.Equal(t, h[len(h)-1], last)

	assert.Empty(t, engine.History("UNKNOWN"))
}

func TestEngine_StateMachine(t *testing.T) {
	obs := &recorder{}
	engine := NewEngine(zerolog.Nop(), WithObserver(obs), WithModules(fixedModule{id: "a", score: 50}))
	assert.Equal(t, StateScoring, engine.State())

	_, err := engine.Analyze(context.Background(), bars("S", 1, 2))
	require.NoError(t, err)
	assert.Equal(t, StateDecided, engine.State())

	engine.RecordOutcome()
	assert.Equal(t, StateOutcomeRecorded, engine.State())
	engine.BeginOptimization()
	assert.Equal(t, StateOptimizing, engine.State())
	engine.EndOptimization()
	assert.Equal(t, StateScoring, engine.State())

	assert.Equal(t, []State{StateDecided, StateOutcomeRecorded, StateOptimizing, StateScoring}, obs.transitions)

	assert.True(t, StateDecided.CanTransition(StateOutcomeRecorded))
	assert.False(t, StateScoring.CanTransition(StateOptimizing))
}

func TestEngine_AnalyzeAll(t *testing.T) {
	engine := NewEngine(zerolog.Nop(), WithParallelism(3))

	snaps := make([]core.Snapshot, 0, 12)
	for i := 0; i < 12; i++ {
		step := 0.5
		if i%2 == 1 {
			step = -0.5
		}
		snaps = append(snaps, bars(fmt.Sprintf("I%02d", i), trend(80, 100, step)...))
	}

	decisions, err := engine.AnalyzeAll(context.Background(), snaps)
	require.NoError(t, err)
	require.Len(t, decisions, len(snaps))

	for i, d := range decisions {
		assert.Equal(t, snaps[i].Instrument, d.Instrument)
		assert.NoError(t, d.Weights.Validate())
		assert.Len(t, engine.History(d.Instrument), 1)
	}
	assert.Len(t, engine.Instruments(), len(snaps))

	_, err = engine.AnalyzeAll(context.Background(), append(snaps, bars("", 1, 2)))
	assert.ErrorIs(t, err, core.ErrEmptyInstrument)
}

func TestEngine_ConcurrentWeightSwaps(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	snap := bars("C", trend(60, 50, 0.2)...)

	vectors := []WeightVector{
		DefaultWeights(),
		{strategy.Control: 0.1, strategy.Pattern: 0.1, strategy.Technical: 0.1, strategy.Momentum: 0.7},
		{strategy.Control: 0.7, strategy.Pattern: 0.1, strategy.Technical: 0.1, strategy.Momentum: 0.1},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			assert.NoError(t, engine.SetBaseWeights(vectors[i%len(vectors)]))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			d, err := engine.Analyze(context.Background(), snap)
			assert.NoError(t, err)
			assert.NoError(t, d.Weights.Validate())
		}
	}()
	wg.Wait()
}

func TestEngine_CancelledContext(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Analyze(ctx, bars("X", 1, 2))
	assert.ErrorIs(t, err, context.Canceled)
}
