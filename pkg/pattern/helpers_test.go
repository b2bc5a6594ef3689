package pattern

import (
	"math"
	"math/rand"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
)

// bar is open, high, low, close, volume
type bar [5]float64

func frame(bars ...bar) core.Dataframe {
	candles := make([]core.Candle, len(bars))
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, b := range bars {
		candles[i] = core.Candle{
			Time:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   b[0],
			High:   b[1],
			Low:    b[2],
			Close:  b[3],
			Volume: b[4],
		}
	}
	return core.NewDataframe("TEST", candles)
}

// path builds bars whose closes follow straight lines between pivots
func path(steps int, pivots ...float64) core.Dataframe {
	closes := []float64{pivots[0]}
	for p := 1; p < len(pivots); p++ {
		from, to := pivots[p-1], pivots[p]
		for s := 1; s <= steps; s++ {
			closes = append(closes, from+(to-from)*float64(s)/float64(steps))
		}
	}
	return fromCloses(closes, 0.5)
}

func fromCloses(closes []float64, spread float64) core.Dataframe {
	bars := make([]bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = bar{open, math.Max(open, c) + spread, math.Min(open, c) - spread, c, 1000}
	}
	return frame(bars...)
}

func randomFrame(seed int64, n int) core.Dataframe {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]bar, n)
	price := 100.0
	for i := range bars {
		open := price
		price *= 1 + (rng.Float64()-0.5)*0.06
		high := math.Max(open, price) * (1 + rng.Float64()*0.02)
		low := math.Min(open, price) * (1 - rng.Float64()*0.02)
		bars[i] = bar{open, high, low, price, 500 + rng.Float64()*1500}
	}
	return frame(bars...)
}
