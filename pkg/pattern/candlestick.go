package pattern

import (
	"math"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/metric"
)

const (
	// trend confirmation thresholds on the net move of the prior bars
	minTrendMove   = 0.015
	minRallyMove   = 0.03
	srLookback     = 20
	srTolerance    = 0.02
	volumeWindow   = 5
	minLongBody    = 0.6
	minSolidBody   = 0.5
	baseConfidence = 0.4
)

// trendMove returns the net move from the open of bar from to the close of bar to
func trendMove(df core.Dataframe, from, to int) float64 {
	if from < 0 || to >= df.Len() || from > to || df.Open[from] == 0 {
		return 0
	}
	return (df.Close[to] - df.Open[from]) / df.Open[from]
}

// averageVolume over bars [from, to)
func averageVolume(df core.Dataframe, from, to int) float64 {
	from = max(from, 0)
	if to <= from {
		return 0
	}
	return metric.Mean(df.Volume[from:to])
}

// highestHigh over bars [from, to)
func highestHigh(df core.Dataframe, from, to int) float64 {
	from = max(from, 0)
	out := math.Inf(-1)
	for i := from; i < to; i++ {
		out = math.Max(out, df.High[i])
	}
	return out
}

// lowestLow over bars [from, to)
func lowestLow(df core.Dataframe, from, to int) float64 {
	from = max(from, 0)
	out := math.Inf(1)
	for i := from; i < to; i++ {
		out = math.Min(out, df.Low[i])
	}
	return out
}

// proximity scores 1 when price sits on level and 0 once it is tolerance (relative) away
func proximity(price, level, tolerance float64) float64 {
	if level == 0 || math.IsInf(level, 0) {
		return 0
	}
	return clamp01(1 - math.Abs(price-level)/level/tolerance)
}

func volumeRatio(current, reference float64) float64 {
	if reference <= 0 {
		return 0
	}
	return current / reference
}

func bullishLevels(entry, stop float64) Levels {
	risk := entry - stop
	if risk <= 0 {
		risk = entry * 0.01
		stop = entry - risk
	}
	return Levels{
		Support:  stop,
		StopLoss: stop,
		Targets:  []float64{entry + risk, entry + 1.5*risk},
	}
}

func bearishLevels(entry, stop float64) Levels {
	risk := stop - entry
	if risk <= 0 {
		risk = entry * 0.01
		stop = entry + risk
	}
	return Levels{
		Resistance: stop,
		StopLoss:   stop,
		Targets:    []float64{entry - risk, entry - 1.5*risk},
	}
}

// DetectDarkCloudCover finds a long green bar after a rally followed by a red bar
// opening above its close and closing below its midpoint on rising volume.
func DetectDarkCloudCover(df core.Dataframe) Match {
	const trendBars = 3
	n := df.Len()
	if n < trendBars+2 {
		return notDetected(DarkCloudCover)
	}

	i1, i2 := n-2, n-1
	c1, c2 := df.Candle(i1), df.Candle(i2)

	trend := trendMove(df, i1-trendBars, i1-1)
	if trend < minTrendMove {
		return notDetected(DarkCloudCover)
	}
	if !c1.IsGreen() || c1.BodyRatio() < minLongBody {
		return notDetected(DarkCloudCover)
	}
	if !c2.IsRed() || c2.Open <= c1.Close {
		return notDetected(DarkCloudCover)
	}
	if c2.Close >= c1.Midpoint() || c2.Close <= c1.Open {
		return notDetected(DarkCloudCover)
	}
	volRatio := volumeRatio(c2.Volume, c1.Volume)
	if volRatio < 1.1 {
		return notDetected(DarkCloudCover)
	}

	penetration := (c1.Close - c2.Close) / c1.Body()
	resistance := highestHigh(df, i1-srLookback, i1)

	card := scorecard{total: baseConfidence}
	card.add(0.2, (penetration-0.5)/0.5)
	card.add(0.2, (volRatio-1)/0.5)
	card.add(0.1, trend/0.05)
	card.add(0.1, proximity(c2.High, resistance, srTolerance))

	levels := bearishLevels(c2.Close, math.Max(c1.High, c2.High))
	levels.Support = c1.Open

	return detected(DarkCloudCover, core.Bearish, card.value(), levels,
		"red bar penetrates the prior green body after a rally")
}

// DetectMorningStar finds a long red bar, a small star below it and a green bar
// closing above the first body midpoint at the end of a decline.
func DetectMorningStar(df core.Dataframe) Match {
	const trendBars = 3
	n := df.Len()
	if n < trendBars+3 {
		return notDetected(MorningStar)
	}

	i1, i2, i3 := n-3, n-2, n-1
	c1, c2, c3 := df.Candle(i1), df.Candle(i2), df.Candle(i3)

	trend := trendMove(df, i1-trendBars, i1-1)
	if trend > -minTrendMove {
		return notDetected(MorningStar)
	}
	if !c1.IsRed() || c1.BodyRatio() < minSolidBody {
		return notDetected(MorningStar)
	}
	if c2.Body() > 0.35*c1.Body() || math.Max(c2.Open, c2.Close) > c1.Close {
		return notDetected(MorningStar)
	}
	if !c3.IsGreen() || c3.Close <= c1.Midpoint() {
		return notDetected(MorningStar)
	}
	volRatio := volumeRatio(c3.Volume, c2.Volume)
	if volRatio < 1 {
		return notDetected(MorningStar)
	}

	penetration := (c3.Close - c1.Close) / c1.Body()
	support := lowestLow(df, i1-srLookback, i1)

	card := scorecard{total: baseConfidence}
	card.add(0.2, (penetration-0.5)/0.5)
	card.add(0.2, (volRatio-1)/0.5)
	card.add(0.1, -trend/0.05)
	card.add(0.1, proximity(c2.Low, support, srTolerance))

	stop := math.Min(c2.Low, math.Min(c1.Low, c3.Low))
	levels := bullishLevels(c3.Close, stop)
	levels.Resistance = c1.Open

	return detected(MorningStar, core.Bullish, card.value(), levels,
		"star below a long red bar recovered by a green bar")
}

// DetectBullishEngulfing finds a green bar whose body engulfs the prior red body
// after a decline, confirmed by higher volume.
func DetectBullishEngulfing(df core.Dataframe) Match {
	const trendBars = 3
	n := df.Len()
	if n < trendBars+2 {
		return notDetected(BullishEngulfing)
	}

	i1, i2 := n-2, n-1
	c1, c2 := df.Candle(i1), df.Candle(i2)

	trend := trendMove(df, i1-trendBars, i1)
	if trend > -minTrendMove {
		return notDetected(BullishEngulfing)
	}
	if !c1.IsRed() || !c2.IsGreen() {
		return notDetected(BullishEngulfing)
	}
	if c2.Open > c1.Close || c2.Close < c1.Open || c2.Body() < 1.1*c1.Body() {
		return notDetected(BullishEngulfing)
	}
	volRatio := volumeRatio(c2.Volume, c1.Volume)
	if volRatio < 1.2 {
		return notDetected(BullishEngulfing)
	}

	support := lowestLow(df, i1-srLookback, i1)

	card := scorecard{total: baseConfidence}
	card.add(0.2, c2.Body()/c1.Body()-1)
	card.add(0.2, (volRatio-1)/0.5)
	card.add(0.1, -trend/0.05)
	card.add(0.1, proximity(math.Min(c1.Low, c2.Low), support, srTolerance))

	levels := bullishLevels(c2.Close, math.Min(c1.Low, c2.Low))
	return detected(BullishEngulfing, core.Bullish, card.value(), levels,
		"green body engulfs the prior red body")
}

// DetectTripleCrash finds three falling red bars opening inside the previous body
// after a rally, with the last close breaking below the 10 bar moving average.
func DetectTripleCrash(df core.Dataframe) Match {
	const (
		trendBars = 5
		maBars    = 10
	)
	n := df.Len()
	if n < maBars+3 || n < trendBars+3 {
		return notDetected(TripleCrash)
	}

	i1 := n - 3
	bars := []core.Candle{df.Candle(i1), df.Candle(i1 + 1), df.Candle(i1 + 2)}

	trend := trendMove(df, i1-trendBars, i1-1)
	if trend < minRallyMove {
		return notDetected(TripleCrash)
	}
	for k, c := range bars {
		if !c.IsRed() || c.BodyRatio() < minSolidBody {
			return notDetected(TripleCrash)
		}
		if k == 0 {
			continue
		}
		prev := bars[k-1]
		if c.Open > prev.Open || c.Open < prev.Close || c.Close >= prev.Close {
			return notDetected(TripleCrash)
		}
	}

	var ma float64
	for i := i1 - maBars; i < i1; i++ {
		ma += df.Close[i]
	}
	ma /= maBars
	last := bars[2]
	if last.Close >= ma {
		return notDetected(TripleCrash)
	}

	drop := (bars[0].Open - last.Close) / bars[0].Open
	volRatio := volumeRatio(last.Volume, averageVolume(df, i1-volumeWindow, i1))

	card := scorecard{total: baseConfidence}
	card.add(0.2, drop/0.05)
	card.add(0.15, (volRatio-1)/0.5)
	card.add(0.15, trend/0.08)
	card.add(0.1, (ma-last.Close)/ma/0.02)

	levels := bearishLevels(last.Close, bars[0].Open)
	levels.Support = lowestLow(df, i1-srLookback, i1)

	return detected(TripleCrash, core.Bearish, card.value(), levels,
		"three falling red bars broke the 10 bar average")
}

// DetectRisingObstacle finds a bar rejected at resistance with a long upper shadow
// after a rally.
func DetectRisingObstacle(df core.Dataframe) Match {
	const trendBars = 5
	n := df.Len()
	if n < trendBars+2 {
		return notDetected(RisingObstacle)
	}

	i := n - 1
	c := df.Candle(i)

	trend := trendMove(df, i-trendBars, i-1)
	if trend < minRallyMove {
		return notDetected(RisingObstacle)
	}
	rng := c.Range()
	if rng <= 0 {
		return notDetected(RisingObstacle)
	}
	upper := c.UpperShadow()
	if upper < 2*c.Body() || upper < 0.5*rng {
		return notDetected(RisingObstacle)
	}
	resistance := highestHigh(df, i-srLookback, i)
	if math.Abs(c.High-resistance)/resistance > srTolerance {
		return notDetected(RisingObstacle)
	}
	volRatio := volumeRatio(c.Volume, averageVolume(df, i-volumeWindow, i))
	if volRatio < 1 {
		return notDetected(RisingObstacle)
	}

	card := scorecard{total: baseConfidence}
	card.add(0.2, (upper/rng-0.5)/0.5)
	card.add(0.15, (volRatio-1)/0.5)
	card.add(0.15, trend/0.08)
	card.add(0.1, proximity(c.High, resistance, srTolerance))

	levels := bearishLevels(c.Close, c.High)
	levels.Resistance = resistance

	return detected(RisingObstacle, core.Bearish, card.value(), levels,
		"long upper shadow rejected at resistance")
}

// DetectThreeWhiteSoldiers finds three rising green bars with short upper shadows
// each opening inside the prior body after a decline.
func DetectThreeWhiteSoldiers(df core.Dataframe) Match {
	const trendBars = 5
	n := df.Len()
	if n < trendBars+3 {
		return notDetected(ThreeWhiteSoldiers)
	}

	i1 := n - 3
	bars := []core.Candle{df.Candle(i1), df.Candle(i1 + 1), df.Candle(i1 + 2)}

	trend := trendMove(df, i1-trendBars, i1-1)
	if trend > -minTrendMove {
		return notDetected(ThreeWhiteSoldiers)
	}
	for k, c := range bars {
		if !c.IsGreen() || c.BodyRatio() < minLongBody || c.UpperShadow() > 0.3*c.Body() {
			return notDetected(ThreeWhiteSoldiers)
		}
		if k == 0 {
			continue
		}
		prev := bars[k-1]
		if c.Open < prev.Open || c.Open > prev.Close || c.Close <= prev.Close {
			return notDetected(ThreeWhiteSoldiers)
		}
	}

	avg := (bars[0].Volume + bars[1].Volume + bars[2].Volume) / 3
	volRatio := volumeRatio(avg, averageVolume(df, i1-volumeWindow, i1))
	if volRatio < 1 {
		return notDetected(ThreeWhiteSoldiers)
	}

	gain := (bars[2].Close - bars[0].Open) / bars[0].Open
	support := lowestLow(df, i1-srLookback, i1)

	card := scorecard{total: baseConfidence}
	card.add(0.2, gain/0.05)
	card.add(0.15, (volRatio-1)/0.5)
	card.add(0.15, -trend/0.05)
	card.add(0.1, proximity(bars[0].Low, support, srTolerance))

	levels := bullishLevels(bars[2].Close, bars[0].Low)
	return detected(ThreeWhiteSoldiers, core.Bullish, card.value(), levels,
		"three advancing green bars after a decline")
}

func rollingMean(values []float64, period, end int) float64 {
	return metric.Mean(values[end-period+1 : end+1])
}

// DetectTopThreeDucks finds three rising moving averages (5, 10, 20) in bullish
// order after a shallow pullback of the fast average that held above the slow one,
// resumed by a green bar on expanding volume.
func DetectTopThreeDucks(df core.Dataframe) Match {
	const (
		minBars      = 30
		pullbackBars = 10
	)
	n := df.Len()
	if n < minBars {
		return notDetected(TopThreeDucks)
	}

	closes := df.Close.Values()
	i := n - 1
	ma5, ma10, ma20 := rollingMean(closes, 5, i), rollingMean(closes, 10, i), rollingMean(closes, 20, i)
	if !(ma5 > ma10 && ma10 > ma20) {
		return notDetected(TopThreeDucks)
	}
	if ma5 <= rollingMean(closes, 5, i-3) || ma10 <= rollingMean(closes, 10, i-3) ||
		ma20 <= rollingMean(closes, 20, i-3) {
		return notDetected(TopThreeDucks)
	}

	pulledBack := false
	for j := i - pullbackBars; j < i; j++ {
		f, m, s := rollingMean(closes, 5, j), rollingMean(closes, 10, j), rollingMean(closes, 20, j)
		if closes[j] < s*0.99 {
			return notDetected(TopThreeDucks)
		}
		if f <= m*1.005 {
			pulledBack = true
		}
	}
	if !pulledBack {
		return notDetected(TopThreeDucks)
	}

	trend := trendMove(df, i-20, i)
	if trend < 0.05 {
		return notDetected(TopThreeDucks)
	}
	c := df.Candle(i)
	volRatio := volumeRatio(c.Volume, averageVolume(df, i-volumeWindow, i))
	if !c.IsGreen() || volRatio < 1.2 {
		return notDetected(TopThreeDucks)
	}

	resistance := highestHigh(df, i-srLookback, i)

	card := scorecard{total: baseConfidence}
	card.add(0.2, (ma5-ma20)/ma20/0.03)
	card.add(0.2, (volRatio-1)/0.5)
	card.add(0.1, trend/0.15)
	card.add(0.1, proximity(c.Close, resistance, srTolerance))

	levels := bullishLevels(c.Close, ma20)
	levels.Resistance = resistance
	return detected(TopThreeDucks, core.Bullish, card.value(), levels,
		"moving averages re-expanded after a pullback held the slow average")
}

// DetectDoubleGreenParallel finds two similar green bars opening side by side
// above an unfilled gap during a rally.
func DetectDoubleGreenParallel(df core.Dataframe) Match {
	const trendBars = 5
	n := df.Len()
	if n < trendBars+3 {
		return notDetected(DoubleGreenParallel)
	}

	i1, i2 := n-2, n-1
	prev, c1, c2 := df.Candle(i1-1), df.Candle(i1), df.Candle(i2)

	trend := trendMove(df, i1-trendBars, i1-1)
	if trend < minRallyMove {
		return notDetected(DoubleGreenParallel)
	}
	if !c1.IsGreen() || !c2.IsGreen() {
		return notDetected(DoubleGreenParallel)
	}
	if c1.Low <= prev.High || c2.Low <= prev.High {
		return notDetected(DoubleGreenParallel)
	}
	if math.Abs(c1.Open-c2.Open)/c1.Open > 0.01 {
		return notDetected(DoubleGreenParallel)
	}
	similarity := math.Min(c1.Body(), c2.Body()) / math.Max(c1.Body(), c2.Body())
	if similarity < 0.6 {
		return notDetected(DoubleGreenParallel)
	}
	volRatio := volumeRatio((c1.Volume+c2.Volume)/2, averageVolume(df, i1-volumeWindow, i1))
	if volRatio < 1 {
		return notDetected(DoubleGreenParallel)
	}

	gap := (math.Min(c1.Low, c2.Low) - prev.High) / prev.High

	card := scorecard{total: baseConfidence}
	card.add(0.2, gap/0.02)
	card.add(0.15, (volRatio-1)/0.5)
	card.add(0.15, trend/0.08)
	card.add(0.1, similarity)

	levels := bullishLevels(c2.Close, prev.High)
	return detected(DoubleGreenParallel, core.Bullish, card.value(), levels,
		"two parallel green bars above an open gap")
}
