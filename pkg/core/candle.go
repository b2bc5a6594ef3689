package core

import (
	"fmt"
	"strconv"
	"time"
)

// Candle represents one OHLCV bar of an instrument
type Candle struct {
	Instrument string
	Time       time.Time
	Open       float64
	Close      float64
	Low        float64
	High       float64
	Volume     float64
}

// Body returns the absolute size of the candle body
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the distance between high and low
func (c Candle) Range() float64 { return c.High - c.Low }

// BodyRatio returns the body size relative to the candle range, 0 for flat candles
func (c Candle) BodyRatio() float64 {
	if r := c.Range(); r > 0 {
		return c.Body() / r
	}
	return 0
}

// Midpoint returns the middle of the candle body
func (c Candle) Midpoint() float64 { return (c.Open + c.Close) / 2 }

// IsGreen reports whether the candle closed above its open
func (c Candle) IsGreen() bool { return c.Close > c.Open }

// IsRed reports whether the candle closed below its open
func (c Candle) IsRed() bool { return c.Close < c.Open }

// UpperShadow returns the wick above the body
func (c Candle) UpperShadow() float64 {
	return c.High - max(c.Open, c.Close)
}

// LowerShadow returns the wick below the body
func (c Candle) LowerShadow() float64 {
	return min(c.Open, c.Close) - c.Low
}

// IsEmpty checks if the candle contains no significant data
func (c Candle) IsEmpty() bool {
	return c.Instrument == "" && c.Close == 0 && c.Open == 0 && c.Volume == 0
}

// ToSlice converts a candle to a string slice for serialization
// with the specified decimal precision
func (c Candle) ToSlice(precision int) []string {
	return []string{
		fmt.Sprintf("%d", c.Time.Unix()),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', precision, 64),
	}
}
