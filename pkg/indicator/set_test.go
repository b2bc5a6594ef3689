package indicator

import (
	"testing"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataframe(closes []float64) core.Dataframe {
	candles := make([]core.Candle, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = core.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return core.NewDataframe("TEST", candles)
}

func TestCompute_ShortSeriesLeavesNils(t *testing.T) {
	set := Compute(dataframe([]float64{10, 11, 12, 13, 14}))

	assert.Equal(t, 14.0, set.Price)
	require.NotNil(t, set.MA5)
	assert.Nil(t, set.MA20)
	assert.Nil(t, set.RSI)
	assert.Nil(t, set.MACD)
	assert.Nil(t, set.K)
	assert.Nil(t, set.Volatility)
}

func TestCompute_LongSeries(t *testing.T) {
	set := Compute(dataframe(randomWalk(3, 100)))

	require.NotNil(t, set.MA60)
	require.NotNil(t, set.RSI)
	require.NotNil(t, set.MACD)
	require.NotNil(t, set.WilliamsR)
	require.NotNil(t, set.J)
	require.NotNil(t, set.ATR)
	require.NotNil(t, set.Volatility)
	assert.Equal(t, 7.0, Value(nil, 7))
}
