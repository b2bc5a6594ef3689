package core

import (
	"context"
)

// Store is the persistence boundary used for weights and instrument characteristics.
// Values are opaque byte slices, encoding is the caller's concern.
type Store interface {
	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value
	Put(ctx context.Context, key string, value []byte) error
}

// Snapshot is the input of one analysis cycle for a single instrument
type Snapshot struct {
	Instrument string
	Bars       Dataframe

	// Optional higher or lower timeframe series keyed by timeframe (eg: 1h, 1d)
	Timeframes map[string]Dataframe

	// Optional sector hint forwarded to the instrument characteristics
	Sector SectorType
}

// NewSnapshot creates a snapshot from a list of candles
func NewSnapshot(instrument string, candles []Candle) Snapshot {
	return Snapshot{
		Instrument: instrument,
		Bars:       NewDataframe(instrument, candles),
	}
}

// LastPrice returns the latest close or zero when the snapshot is empty
func (s Snapshot) LastPrice() float64 {
	if s.Bars.Len() == 0 {
		return 0
	}
	return s.Bars.Close.Last(0)
}

// Validate checks the snapshot carries an instrument id and consistent bars
func (s Snapshot) Validate() error {
	if s.Instrument == "" {
		return ErrEmptyInstrument
	}
	if err := s.Bars.Validate(); err != nil {
		return err
	}
	for _, df := range s.Timeframes {
		if err := df.Validate(); err != nil {
			return err
		}
	}
	return nil
}
