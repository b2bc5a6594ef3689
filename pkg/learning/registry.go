package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
)

// WeightsKey is the store key of the learned base weights
const WeightsKey = "weights"

// CharacteristicsKey returns the store key of an instrument profile
func CharacteristicsKey(instrument string) string {
	return "characteristics:" + instrument
}

type entry struct {
	mu     sync.Mutex
	loaded bool
	value  core.Characteristics
}

// Registry holds instrument characteristics, loading them lazily from a store
// and writing them back on every update. Each instrument has a single writer.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	store   core.Store
	log     logger.Logger
}

// NewRegistry creates a registry backed by store, a nil store keeps profiles in memory only
func NewRegistry(store core.Store, log logger.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		store:   store,
		log:     log,
	}
}

func (r *Registry) entryFor(instrument string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[instrument]
	if !ok {
		e = &entry{}
		r.entries[instrument] = e
	}
	return e
}

// load must be called with e.mu held. Failures fall back to the default profile.
func (r *Registry) load(ctx context.Context, instrument string, e *entry) {
	if e.loaded {
		return
	}
	e.loaded = true
	e.value = core.NewCharacteristics(instrument)

	if r.store == nil {
		return
	}

	raw, err := r.store.Get(ctx, CharacteristicsKey(instrument))
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			r.log.WithError(err).WithField("instrument", instrument).
				Warn("failed to load characteristics, using defaults")
		}
		return
	}

	var ch core.Characteristics
	if err := json.Unmarshal(raw, &ch); err != nil {
		r.log.WithError(err).WithField("instrument", instrument).
			Warn("corrupt characteristics, using defaults")
		return
	}
	if ch.Effectiveness == nil {
		ch.Effectiveness = make(map[core.StrategyID]float64)
	}
	ch.Instrument = instrument
	e.value = ch
}

// Characteristics returns a copy of the instrument profile
func (r *Registry) Characteristics(ctx context.Context, instrument string) core.Characteristics {
	e := r.entryFor(instrument)
	e.mu.Lock()
	defer e.mu.Unlock()

	r.load(ctx, instrument, e)
	return e.value.Clone()
}

// Update folds an outcome into the instrument profile and persists it. The
// in-memory profile is updated even when persisting fails.
func (r *Registry) Update(ctx context.Context, outcome TradeOutcome) (core.Characteristics, error) {
	e := r.entryFor(outcome.Instrument)
	e.mu.Lock()
	defer e.mu.Unlock()

	r.load(ctx, outcome.Instrument, e)
	e.value = UpdateCharacteristics(e.value, outcome)

	r.log.WithFields(map[string]any{
		"instrument": outcome.Instrument,
		"volatility": e.value.Volatility,
		"pattern":    e.value.Pattern,
		"trades":     e.value.Trades,
	}).Debug("characteristics updated")

	return e.value.Clone(), r.persist(ctx, e.value)
}

// SetSector records the sector of an instrument when it is still unknown
func (r *Registry) SetSector(ctx context.Context, instrument string, sector core.SectorType) error {
	if sector == "" || sector == core.SectorUnknown {
		return nil
	}

	e := r.entryFor(instrument)
	e.mu.Lock()
	defer e.mu.Unlock()

	r.load(ctx, instrument, e)
	if e.value.Sector == sector {
		return nil
	}
	e.value.Sector = sector
	return r.persist(ctx, e.value)
}

func (r *Registry) persist(ctx context.Context, ch core.Characteristics) error {
	if r.store == nil {
		return nil
	}
	content, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal characteristics: %w", err)
	}
	if err := r.store.Put(ctx, CharacteristicsKey(ch.Instrument), content); err != nil {
		return fmt.Errorf("store characteristics %q: %w", ch.Instrument, err)
	}
	return nil
}

// Instruments returns the instruments seen by the registry in lexical order
func (r *Registry) Instruments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	instruments := lo.Keys(r.entries)
	sort.Strings(instruments)
	return instruments
}

// LoadWeights reads the persisted base weights
func LoadWeights(ctx context.Context, store core.Store) (fusion.WeightVector, error) {
	raw, err := store.Get(ctx, WeightsKey)
	if err != nil {
		return nil, err
	}

	var w fusion.WeightVector
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// SaveWeights persists base weights
func SaveWeights(ctx context.Context, store core.Store, w fusion.WeightVector) error {
	if err := w.Validate(); err != nil {
		return err
	}
	content, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	return store.Put(ctx, WeightsKey, content)
}
