package core

import "errors"

var (
	ErrNotFound          = errors.New("key not found")
	ErrEmptyInstrument   = errors.New("empty instrument id")
	ErrNegativeVolume    = errors.New("negative volume")
	ErrUnorderedBars     = errors.New("bar timestamps must be strictly increasing")
	ErrMisalignedColumns = errors.New("dataframe columns have different lengths")
)
