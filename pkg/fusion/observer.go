package fusion

import (
	"context"

	"github.com/raykavin/stratfuse/pkg/core"
)

// Observer is notified of engine activity, typically to export metrics
type Observer interface {
	ObserveDecision(d Decision)
	ObserveModuleFailure(instrument string, id core.StrategyID)
	ObserveWeights(w WeightVector)
	ObserveTransition(from, to State)
}

// CharacteristicsProvider resolves the learned profile of an instrument
type CharacteristicsProvider interface {
	Characteristics(ctx context.Context, instrument string) core.Characteristics
}

type nopObserver struct{}

func (nopObserver) ObserveDecision(Decision)                     {}
func (nopObserver) ObserveModuleFailure(string, core.StrategyID) {}
func (nopObserver) ObserveWeights(WeightVector)                  {}
func (nopObserver) ObserveTransition(State, State)               {}

// defaultCharacteristics hands out the neutral profile of unseen instruments
type defaultCharacteristics struct{}

func (defaultCharacteristics) Characteristics(_ context.Context, instrument string) core.Characteristics {
	return core.NewCharacteristics(instrument)
}
