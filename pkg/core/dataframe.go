package core

import (
	"time"
)

// Dataframe is a column oriented container of OHLCV bars
type Dataframe struct {
	Instrument string

	Close  Series[float64]
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Volume Series[float64]

	Time []time.Time
}

// NewDataframe builds a dataframe from a slice of candles
func NewDataframe(instrument string, candles []Candle) Dataframe {
	df := Dataframe{
		Instrument: instrument,
		Close:      make(Series[float64], 0, len(candles)),
		Open:       make(Series[float64], 0, len(candles)),
		High:       make(Series[float64], 0, len(candles)),
		Low:        make(Series[float64], 0, len(candles)),
		Volume:     make(Series[float64], 0, len(candles)),
		Time:       make([]time.Time, 0, len(candles)),
	}
	for _, c := range candles {
		df.Append(c)
	}
	return df
}

// Append adds a bar at the end of the dataframe
func (df *Dataframe) Append(c Candle) {
	df.Open = append(df.Open, c.Open)
	df.High = append(df.High, c.High)
	df.Low = append(df.Low, c.Low)
	df.Close = append(df.Close, c.Close)
	df.Volume = append(df.Volume, c.Volume)
	df.Time = append(df.Time, c.Time)
}

// Len returns the number of bars
func (df Dataframe) Len() int { return len(df.Close) }

// Candle returns the bar at index i
func (df Dataframe) Candle(i int) Candle {
	c := Candle{
		Instrument: df.Instrument,
		Open:       df.Open[i],
		High:       df.High[i],
		Low:        df.Low[i],
		Close:      df.Close[i],
	}
	if i < len(df.Volume) {
		c.Volume = df.Volume[i]
	}
	if i < len(df.Time) {
		c.Time = df.Time[i]
	}
	return c
}

// LastCandle returns the bar at a position from the end, 0 being the latest
func (df Dataframe) LastCandle(position int) Candle {
	return df.Candle(df.Len() - 1 - position)
}

// Candles returns all bars as a slice
func (df Dataframe) Candles() []Candle {
	out := make([]Candle, df.Len())
	for i := range out {
		out[i] = df.Candle(i)
	}
	return out
}

// Sample returns a subset of the dataframe with the last 'positions' elements
// Used for windowing operations on a dataframe
func (df Dataframe) Sample(positions int) Dataframe {
	size := df.Len()
	start := size - positions

	// Return the entire dataframe if requested sample is larger than dataframe
	if start <= 0 {
		return df
	}

	sample := Dataframe{
		Instrument: df.Instrument,
		Close:      df.Close.LastValues(positions),
		Open:       df.Open.LastValues(positions),
		High:       df.High.LastValues(positions),
		Low:        df.Low.LastValues(positions),
		Volume:     df.Volume.LastValues(positions),
	}
	if len(df.Time) == size {
		sample.Time = df.Time[start:]
	}
	return sample
}

// Head returns the first n bars
func (df Dataframe) Head(n int) Dataframe {
	if n >= df.Len() {
		return df
	}
	out := Dataframe{
		Instrument: df.Instrument,
		Close:      df.Close[:n],
		Open:       df.Open[:n],
		High:       df.High[:n],
		Low:        df.Low[:n],
		Volume:     df.Volume[:n],
	}
	if len(df.Time) >= n {
		out.Time = df.Time[:n]
	}
	return out
}

// Validate checks column alignment, bar ordering and volume sign
func (df Dataframe) Validate() error {
	n := df.Len()
	if len(df.Open) != n || len(df.High) != n || len(df.Low) != n || len(df.Volume) != n {
		return ErrMisalignedColumns
	}
	if len(df.Time) != 0 && len(df.Time) != n {
		return ErrMisalignedColumns
	}
	for i := 0; i < n; i++ {
		if df.Volume[i] < 0 {
			return ErrNegativeVolume
		}
		if i > 0 && len(df.Time) == n && !df.Time[i].After(df.Time[i-1]) {
			return ErrUnorderedBars
		}
	}
	return nil
}
