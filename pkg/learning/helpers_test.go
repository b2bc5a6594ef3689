package learning

import (
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/strategy"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func bars(instrument string, closes ...float64) core.Dataframe {
	candles := make([]core.Candle, len(closes))
	for i, c := range closes {
		candles[i] = core.Candle{
			Instrument: instrument,
			Time:       start.Add(time.Duration(i) * 24 * time.Hour),
			Open:       c,
			High:       c + 0.5,
			Low:        c - 0.5,
			Close:      c,
			Volume:     1000,
		}
	}
	return core.NewDataframe(instrument, candles)
}

func linear(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func alternating(n int, low, high float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = low
		if i%2 == 1 {
			out[i] = high
		}
	}
	return out
}

func call(bullish bool) core.Direction {
	if bullish {
		return core.Bullish
	}
	return core.Bearish
}

// scenario returns n winning trades where control is right on the first
// controlHits and pattern on the first patternHits
func scenario(n, controlHits, patternHits int) []TradeOutcome {
	trades := make([]TradeOutcome, n)
	for i := range trades {
		trades[i] = TradeOutcome{
			Instrument: "AAPL",
			Contributions: map[core.StrategyID]core.Direction{
				strategy.Control: call(i < controlHits),
				strategy.Pattern: call(i < patternHits),
			},
			ProfitLoss: 0.02,
			EntryPrice: 100,
			ExitPrice:  102,
			ClosedAt:   start.Add(time.Duration(i) * time.Hour),
		}
	}
	return trades
}
