// internal/matching/weights.go
package matching

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

type weightState struct {
	weights       Weights
	lastOptimized *time.Time
}

// WeightStore caches the current weight vector. Readers take an immutable
// snapshot; updates swap in a new copy so in-flight scoring passes are never
// affected.
type WeightStore struct {
	backend WeightConfigStore
	state   atomic.Pointer[weightState]
}

// NewWeightStore starts from the default vector until Load is called.
func NewWeightStore(backend WeightConfigStore) *WeightStore {
	ws := &WeightStore{backend: backend}
	ws.state.Store(&weightState{weights: DefaultWeights()})
	return ws
}

// Load reads the persisted vector, falling back to defaults when none is
// stored, and normalizes it.
func (ws *WeightStore) Load(ctx context.Context) (Weights, error) {
	if ws.backend == nil {
		return ws.Snapshot(), nil
	}
	w, last, found, err := ws.backend.Load(ctx)
	if err != nil {
		return ws.Snapshot(), fmt.Errorf("load weights: %w", err)
	}
	if !found {
		w = DefaultWeights()
	}
	w = w.Normalize()
	ws.state.Store(&weightState{weights: w, lastOptimized: last})
	return w, nil
}

func (ws *WeightStore) Snapshot() Weights {
	return ws.state.Load().weights
}

func (ws *WeightStore) LastOptimized() *time.Time {
	last := ws.state.Load().lastOptimized
	if last == nil {
		return nil
	}
	t := *last
	return &t
}

// Replace normalizes w, persists it with the optimization timestamp and then
// makes it the current vector. Nothing is swapped if persisting fails.
func (ws *WeightStore) Replace(ctx context.Context, w Weights, at time.Time) (Weights, error) {
	w = w.Normalize()
	if ws.backend != nil {
		if err := ws.backend.Save(ctx, w, at); err != nil {
			return ws.Snapshot(), fmt.Errorf("save weights: %w", err)
		}
	}
	ts := at.UTC()
	ws.state.Store(&weightState{weights: w, lastOptimized: &ts})
	return w, nil
}
