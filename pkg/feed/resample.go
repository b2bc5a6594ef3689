package feed

import (
	"fmt"
	"math"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/raykavin/stratfuse/pkg/core"
)

// isFirstCandlePeriod reports whether a bar opens a target period
func isFirstCandlePeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	prev := t.Add(-fromDuration).UTC()
	return isLastCandlePeriod(prev, fromTimeframe, targetTimeframe)
}

// isLastCandlePeriod reports whether a bar closes a target period
func isLastCandlePeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	if fromTimeframe == targetTimeframe {
		return true, nil
	}

	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	next := t.Add(fromDuration).UTC()
	return isTimeOnPeriodBoundary(next, targetTimeframe)
}

func isTimeOnPeriodBoundary(t time.Time, targetTimeframe string) (bool, error) {
	switch targetTimeframe {
	case "1w":
		return t.Weekday() == time.Monday && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "1d":
		return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	}

	d, err := str2duration.ParseDuration(targetTimeframe)
	if err != nil || d <= 0 {
		return false, fmt.Errorf("invalid timeframe: %s", targetTimeframe)
	}
	if d > 24*time.Hour || (24*time.Hour)%d != 0 {
		return false, fmt.Errorf("unsupported timeframe: %s", targetTimeframe)
	}

	sinceMidnight := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	return sinceMidnight%d == 0, nil
}

// Resample aggregates bars into a higher timeframe. Bars before the first
// period boundary and an unfinished trailing period are dropped.
func Resample(candles []core.Candle, fromTimeframe, targetTimeframe string) ([]core.Candle, error) {
	if len(candles) == 0 {
		return nil, nil
	}

	start := -1
	for i := range candles {
		first, err := isFirstCandlePeriod(candles[i].Time, fromTimeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
		if first {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}

	var (
		out     []core.Candle
		current core.Candle
		open    bool
	)
	for _, candle := range candles[start:] {
		last, err := isLastCandlePeriod(candle.Time, fromTimeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}

		if !open {
			current = candle
			open = true
		} else {
			current.High = math.Max(current.High, candle.High)
			current.Low = math.Min(current.Low, candle.Low)
			current.Close = candle.Close
			current.Volume += candle.Volume
		}

		if last {
			out = append(out, current)
			open = false
		}
	}

	return out, nil
}
