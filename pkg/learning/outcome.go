package learning

import (
	"errors"
	"time"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
)

var ErrNoContributions = errors.New("trade outcome has no strategy contributions")

// TradeOutcome is a settled trade together with what every strategy called at entry.
// ProfitLoss is measured on a long position, its sign is the realized price move.
type TradeOutcome struct {
	Instrument    string                             `json:"instrument"`
	Contributions map[core.StrategyID]core.Direction `json:"contributions"`
	ProfitLoss    float64                            `json:"profit_loss"`
	EntryPrice    float64                            `json:"entry_price"`
	ExitPrice     float64                            `json:"exit_price"`
	ClosedAt      time.Time                          `json:"closed_at"`

	// Bars is the price history at close, used to reclassify the instrument
	Bars core.Dataframe `json:"-"`
}

// Validate checks the outcome can be learned from
func (t TradeOutcome) Validate() error {
	if t.Instrument == "" {
		return core.ErrEmptyInstrument
	}
	if len(t.Contributions) == 0 {
		return ErrNoContributions
	}
	return nil
}

// Correct reports whether a strategy's call agreed with the realized move
func (t TradeOutcome) Correct(id core.StrategyID) bool {
	return t.Contributions[id].Matches(t.ProfitLoss)
}

// OutcomeFromDecision settles a decision at the exit price
func OutcomeFromDecision(d fusion.Decision, exit float64, closedAt time.Time, bars core.Dataframe) TradeOutcome {
	var pl float64
	if d.Price > 0 {
		pl = exit/d.Price - 1
	}
	return TradeOutcome{
		Instrument:    d.Instrument,
		Contributions: d.Directions(),
		ProfitLoss:    pl,
		EntryPrice:    d.Price,
		ExitPrice:     exit,
		ClosedAt:      closedAt,
		Bars:          bars,
	}
}
