package strategy

import (
	"math"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
)

func snapshotFromCloses(closes []float64, volume float64) core.Snapshot {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		candles[i] = core.Candle{
			Instrument: "TEST",
			Time:       start.Add(time.Duration(i) * time.Hour),
			Open:       open,
			High:       math.Max(open, c) + 0.1,
			Low:        math.Min(open, c) - 0.1,
			Close:      c,
			Volume:     volume,
		}
	}
	return core.NewSnapshot("TEST", candles)
}

func geometric(n int, start, rate float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := range out {
		p *= rate
		out[i] = p
	}
	return out
}

func f(v float64) *float64 { return &v }
