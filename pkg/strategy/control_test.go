package strategy

import (
	"testing"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestControlModule_Weights(t *testing.T) {
	var sum float64
	for _, w := range controlWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, controlWeights, 8)
}

func TestControlModule_Uptrend(t *testing.T) {
	res := NewControlModule(core.Moderate).Analyze(snapshotFromCloses(geometric(80, 100, 1.01), 1000))

	assert.Equal(t, Control, res.ID)
	assert.Greater(t, res.Score, 60.0)
	assert.True(t, res.Action.IsBuy())
	assert.Contains(t, res.FiredSignals(), "trend-following")
	assert.Len(t, res.SubSignals, 8)
	assert.NotEmpty(t, res.Rationale)
}

func TestControlModule_Downtrend(t *testing.T) {
	res := NewControlModule(core.Moderate).Analyze(snapshotFromCloses(geometric(80, 100, 0.99), 1000))

	assert.Less(t, res.Score, 40.0)
	assert.True(t, res.Action.IsSell())
}

func TestControlModule_MultiTimeframe(t *testing.T) {
	m := NewControlModule(core.Moderate)

	up := snapshotFromCloses(geometric(30, 100, 1.01), 1000).Bars
	down := snapshotFromCloses(geometric(30, 100, 0.99), 1000).Bars

	s := m.multiTimeframe(map[string]core.Dataframe{"4h": up, "1d": up})
	assert.Equal(t, 90.0, s.Score)
	assert.Equal(t, core.Bullish, s.Direction)

	s = m.multiTimeframe(map[string]core.Dataframe{"4h": up, "1d": down})
	assert.False(t, s.Fired())

	s = m.multiTimeframe(nil)
	assert.Equal(t, NeutralScore, s.Score)
	assert.Equal(t, "no extra timeframes", s.Note)
}
