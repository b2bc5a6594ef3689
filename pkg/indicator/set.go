package indicator

import "github.com/raykavin/stratfuse/pkg/core"

// Set carries the indicator values derived from one snapshot. A nil field means
// the series was too short for that indicator.
type Set struct {
	Price float64

	MA5  *float64
	MA10 *float64
	MA20 *float64
	MA60 *float64

	EMA12 *float64
	EMA26 *float64

	RSI       *float64
	MACD      *float64
	WilliamsR *float64

	K *float64
	D *float64
	J *float64

	ATR      *float64
	VolumeMA *float64
	ROC      *float64

	// Std-dev of the trailing returns
	Volatility *float64
}

func ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Compute derives the standard indicator set from a dataframe
func Compute(df core.Dataframe) Set {
	closes := df.Close.Values()
	set := Set{}
	if df.Len() > 0 {
		set.Price = df.Close.Last(0)
	}

	set.MA5 = ptr(MA(closes, 5))
	set.MA10 = ptr(MA(closes, 10))
	set.MA20 = ptr(MA(closes, 20))
	set.MA60 = ptr(MA(closes, 60))
	set.EMA12 = ptr(EMA(closes, DefaultMACDFast))
	set.EMA26 = ptr(EMA(closes, DefaultMACDSlow))
	set.RSI = ptr(RSI(closes, DefaultRSIPeriod))
	set.MACD = ptr(MACD(closes, DefaultMACDFast, DefaultMACDSlow))
	set.WilliamsR = ptr(WilliamsR(closes, df.High, df.Low, DefaultWilliamsPeriod))

	if k, d, j, ok := KDJ(closes, df.High, df.Low, DefaultKDJPeriod, DefaultKDJSmoothing, DefaultKDJSmoothing); ok {
		set.K, set.D, set.J = &k, &d, &j
	}

	set.ATR = ptr(AverageTrueRange(df, DefaultATRPeriod))
	set.VolumeMA = ptr(MA(df.Volume.Values(), 20))
	set.ROC = ptr(RateOfChange(closes, 10))
	set.Volatility = ptr(ReturnsStdDev(closes, DefaultVolatilityWindow))

	return set
}

// Value dereferences an optional indicator, returning fallback when absent
func Value(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
