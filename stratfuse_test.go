package stratfuse

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/learning"
	"github.com/raykavin/stratfuse/pkg/logger/zerolog"
	"github.com/raykavin/stratfuse/pkg/storage"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

func uptrend(instrument string, n int) core.Snapshot {
	candles := make([]core.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		c := 100 * (1 + 0.004*float64(i))
		candles[i] = core.Candle{
			Instrument: instrument,
			Time:       start.Add(time.Duration(i) * time.Hour),
			Open:       c * 0.998,
			High:       c * 1.002,
			Low:        c * 0.996,
			Close:      c,
			Volume:     1000 + float64(i%5)*100,
		}
	}
	snap := core.NewSnapshot(instrument, candles)
	snap.Sector = core.SectorTechnology
	return snap
}

func memory(t *testing.T) *storage.Bunt {
	t.Helper()
	store, err := storage.FromMemory()
	require.NoError(t, err)
	return store
}

func TestEngineAnalyze(t *testing.T) {
	ctx := context.Background()
	store := memory(t)

	engine, err := New(ctx, WithLogger(zerolog.Nop()), WithStore(store), WithMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer engine.Close()

	d, err := engine.Analyze(ctx, uptrend("AAPL", 80))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", d.Instrument)
	assert.GreaterOrEqual(t, d.Score, 0.0)
	assert.LessOrEqual(t, d.Score, 100.0)
	assert.Len(t, d.Contributions, len(strategy.IDs))
	assert.Len(t, engine.History("AAPL"), 1)
	assert.Equal(t, core.SectorTechnology, engine.Characteristics(ctx, "AAPL").Sector)

	_, err = engine.Analyze(ctx, core.Snapshot{})
	require.ErrorIs(t, err, core.ErrEmptyInstrument)
}

func TestEngineLearnsAndPersistsWeights(t *testing.T) {
	ctx := context.Background()
	store := memory(t)

	engine, err := New(ctx, WithLogger(zerolog.Nop()), WithStore(store))
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		require.NoError(t, engine.RecordTrade(ctx, learning.TradeOutcome{
			Instrument: "AAPL",
			Contributions: map[core.StrategyID]core.Direction{
				strategy.Technical: core.Bullish,
				strategy.Control:   core.Bearish,
			},
			ProfitLoss: 0.01,
			ClosedAt:   time.Date(2024, 2, 1, i, 0, 0, 0, time.UTC),
		}))
	}

	s, err := engine.Learn(ctx)
	require.NoError(t, err)
	require.True(t, s.Ready)

	learned := engine.Weights()
	require.NoError(t, learned.Validate())
	assert.Greater(t, learned[strategy.Technical], fusion.DefaultWeights()[strategy.Technical])
	assert.Less(t, learned[strategy.Control], fusion.DefaultWeights()[strategy.Control])
	assert.Len(t, engine.Trades(), 12)
	assert.Equal(t, fusion.StateScoring, engine.State())

	// a new engine on the same store starts from the learned weights
	restored, err := New(ctx, WithLogger(zerolog.Nop()), WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, learned, restored.Weights())
	assert.Equal(t, 12, restored.Characteristics(ctx, "AAPL").Trades)
}

func TestEngineConfiguredWeights(t *testing.T) {
	ctx := context.Background()
	store := memory(t)

	custom := fusion.WeightVector{
		strategy.Control:   0.25,
		strategy.Pattern:   0.25,
		strategy.Technical: 0.25,
		strategy.Momentum:  0.25,
	}
	require.NoError(t, learning.SaveWeights(ctx, store, fusion.DefaultWeights()))

	engine, err := New(ctx, WithLogger(zerolog.Nop()), WithStore(store), WithWeights(custom))
	require.NoError(t, err)
	assert.Equal(t, custom, engine.Weights())

	_, err = New(ctx, WithLogger(zerolog.Nop()), WithWeights(fusion.WeightVector{strategy.Control: 2}))
	require.ErrorIs(t, err, fusion.ErrInvalidWeights)
}

func TestEngineIgnoresForeignStoredWeights(t *testing.T) {
	ctx := context.Background()
	store := memory(t)
	require.NoError(t, learning.SaveWeights(ctx, store, fusion.WeightVector{"other": 1}))

	engine, err := New(ctx, WithLogger(zerolog.Nop()), WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, fusion.DefaultWeights(), engine.Weights())
}

func TestEngineSettleAndSetWeights(t *testing.T) {
	ctx := context.Background()
	store := memory(t)

	engine, err := New(ctx, WithLogger(zerolog.Nop()), WithStore(store), WithRiskProfile(core.Aggressive))
	require.NoError(t, err)

	snap := uptrend("MSFT", 80)
	d, err := engine.Analyze(ctx, snap)
	require.NoError(t, err)
	require.NoError(t, engine.Settle(ctx, d, d.Price*1.05, d.Time.Add(time.Hour), snap.Bars))

	trades := engine.Trades()
	require.Len(t, trades, 1)
	assert.InDelta(t, 0.05, trades[0].ProfitLoss, 1e-9)
	assert.Equal(t, d.Directions(), trades[0].Contributions)

	w := fusion.WeightVector{strategy.Control: 0.4, strategy.Pattern: 0.2, strategy.Technical: 0.2, strategy.Momentum: 0.2}
	require.NoError(t, engine.SetWeights(ctx, w))
	stored, err := learning.LoadWeights(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, w, stored)

	require.Error(t, engine.SetWeights(ctx, fusion.WeightVector{strategy.Control: 0.5}))
	assert.Equal(t, w, engine.Weights())
}

func TestEngineAnalyzeAll(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx, WithLogger(zerolog.Nop()), WithParallelism(2), WithHistorySize(5))
	require.NoError(t, err)

	snaps := []core.Snapshot{uptrend("AAPL", 40), uptrend("MSFT", 10), uptrend("NVDA", 70)}
	decisions, err := engine.AnalyzeAll(ctx, snaps)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	for i, d := range decisions {
		assert.Equal(t, snaps[i].Instrument, d.Instrument)
	}
}
