// Package indicator holds pure, deterministic indicator functions over price series.
// Every function reports ok=false instead of failing when the history is shorter
// than the period it needs.
package indicator

import (
	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/metric"
)

// Default periods
const (
	DefaultRSIPeriod        = 14
	DefaultMACDFast         = 12
	DefaultMACDSlow         = 26
	DefaultWilliamsPeriod   = 14
	DefaultKDJPeriod        = 9
	DefaultKDJSmoothing     = 3
	DefaultATRPeriod        = 14
	DefaultVolatilityWindow = 20
)

// MA returns the mean of the last period closes
func MA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	if period == 1 {
		return closes[len(closes)-1], true
	}
	values := SMA(closes, period)
	return values[len(values)-1], true
}

// EMASeries returns the exponential moving average at every position of the input.
// The recurrence is seeded with the first value and runs over the whole series.
func EMASeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) == 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out
}

// EMA returns the last exponential moving average value, seeded with the first
// close and smoothed across the entire series
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	values := EMASeries(closes, period)
	return values[len(values)-1], true
}

// RSI computes the relative strength index from simple averages of the
// trailing period gains and losses. It is 100 when there is no loss at all.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}

	return 100 - 100/(1+avgGain/avgLoss), true
}

// MACD returns the fast EMA minus the slow EMA. Only the line is produced,
// there is no signal line nor histogram.
func MACD(closes []float64, fast, slow int) (float64, bool) {
	fastEMA, ok := EMA(closes, fast)
	if !ok {
		return 0, false
	}
	slowEMA, ok := EMA(closes, slow)
	if !ok {
		return 0, false
	}
	return fastEMA - slowEMA, true
}

// WilliamsR returns (highestHigh-close)/(highestHigh-lowestLow) * -100 over the
// trailing window. A flat window yields -50.
func WilliamsR(closes, highs, lows []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period || len(highs) < period || len(lows) < period {
		return 0, false
	}

	closes, highs, lows = closes[len(closes)-period:], highs[len(highs)-period:], lows[len(lows)-period:]
	highest, lowest := rollingRange(highs, lows, period)
	if highest[period-1] == lowest[period-1] {
		return -50, true
	}

	return WillR(highs, lows, closes, period)[period-1], true
}

// rollingRange returns the highest high and lowest low of the window ending at
// every position
func rollingRange(highs, lows []float64, period int) (highest, lowest []float64) {
	if period == 1 {
		return append([]float64(nil), highs...), append([]float64(nil), lows...)
	}
	return Max(highs, period), Min(lows, period)
}

// KDJ computes the stochastic K, D and J lines using the classic RSV smoothing
// where K and D start at 50 and J = 3K - 2D.
func KDJ(closes, highs, lows []float64, period, kSmooth, dSmooth int) (k, d, j float64, ok bool) {
	if period <= 0 || kSmooth <= 0 || dSmooth <= 0 || len(closes) < period ||
		len(highs) < len(closes) || len(lows) < len(closes) {
		return 0, 0, 0, false
	}

	highest, lowest := rollingRange(highs[:len(closes)], lows[:len(closes)], period)

	k, d = 50, 50
	for i := period - 1; i < len(closes); i++ {
		hh, ll := highest[i], lowest[i]

		rsv := 50.0
		if hh != ll {
			rsv = (closes[i] - ll) / (hh - ll) * 100
		}

		k = (float64(kSmooth-1)*k + rsv) / float64(kSmooth)
		d = (float64(dSmooth-1)*d + k) / float64(dSmooth)
	}

	return k, d, 3*k - 2*d, true
}

// AverageTrueRange returns the last ATR value
func AverageTrueRange(df core.Dataframe, period int) (float64, bool) {
	if period <= 0 || df.Len() <= period {
		return 0, false
	}
	values := ATR(df.High, df.Low, df.Close, period)
	return values[len(values)-1], true
}

// RateOfChange returns the percentage change over period bars
func RateOfChange(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}
	window := closes[len(closes)-1-period:]
	if window[0] == 0 {
		return 0, false
	}
	return ROC(window, period)[period], true
}

// ReturnsStdDev returns the standard deviation of the last window per-bar returns
func ReturnsStdDev(closes []float64, window int) (float64, bool) {
	if window < 2 || len(closes) < window+1 {
		return 0, false
	}
	returns := core.Returns(core.Series[float64](closes)).LastValues(window)
	return metric.StdDev(returns), true
}

// Volatility classifies the trailing returns of a series
func Volatility(closes []float64) (core.VolatilityClass, bool) {
	std, ok := ReturnsStdDev(closes, DefaultVolatilityWindow)
	if !ok {
		return core.VolatilityMedium, false
	}
	return core.ClassifyVolatility(std), true
}
