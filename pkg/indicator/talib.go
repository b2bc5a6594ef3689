package indicator

import "github.com/markcheno/go-talib"

// SMA calculates Simple Moving Average
func SMA(input []float64, period int) []float64 {
	return talib.Sma(input, period)
}

// ATR calculates Average True Range
func ATR(high []float64, low []float64, close []float64, period int) []float64 {
	return talib.Atr(high, low, close, period)
}

// ROC calculates Rate of change : ((price/prevPrice)-1)*100
func ROC(input []float64, period int) []float64 {
	return talib.Roc(input, period)
}

// WillR calculates Williams' %R, a flat window yields zero
func WillR(high []float64, low []float64, close []float64, period int) []float64 {
	return talib.WillR(high, low, close, period)
}

// Max calculates Highest value over a specified period
func Max(input []float64, period int) []float64 {
	return talib.Max(input, period)
}

// Min calculates Lowest value over a specified period
func Min(input []float64, period int) []float64 {
	return talib.Min(input, period)
}
