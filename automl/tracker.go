package automl

import (
	"math"
	"sync"
)

// FamilyBest is the best configuration seen for one family.
type FamilyBest struct {
	Family Family
	Score  float64
	Params Params
}

// TrackerEvent records one Update call.
type TrackerEvent struct {
	Trial    int
	Family   Family
	Score    float64
	Previous float64
	Improved bool
}

// Tracker keeps the best cross-validated score and parameters per family.
// A stored score only ever decreases; an equal score does not replace the
// earlier configuration.
type Tracker struct {
	mu     sync.Mutex
	best   map[Family]*FamilyBest
	order  []Family
	events []TrackerEvent
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{best: make(map[Family]*FamilyBest)}
}

// Best returns the record for f and whether f has been scored.
func (t *Tracker) Best(f Family) (FamilyBest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.best[f]
	if !ok {
		return FamilyBest{Family: f, Score: math.Inf(1)}, false
	}
	return FamilyBest{Family: b.Family, Score: b.Score, Params: b.Params.Clone()}, true
}

// Update stores (score, params) for f if score is strictly lower than the
// current best, and reports whether it did.
func (t *Tracker) Update(trial int, f Family, score float64, params Params) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := math.Inf(1)
	b, ok := t.best[f]
	if ok {
		prev = b.Score
	}
	improved := score < prev
	if improved {
		if !ok {
			t.order = append(t.order, f)
		}
		t.best[f] = &FamilyBest{Family: f, Score: score, Params: params.Clone()}
	}
	t.events = append(t.events, TrackerEvent{Trial: trial, Family: f, Score: score, Previous: prev, Improved: improved})
	return improved
}

// Snapshot returns every tracked family in the order it was first scored.
func (t *Tracker) Snapshot() []FamilyBest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FamilyBest, len(t.order))
	for i, f := range t.order {
		b := t.best[f]
		out[i] = FamilyBest{Family: b.Family, Score: b.Score, Params: b.Params.Clone()}
	}
	return out
}

// Events returns the update log.
func (t *Tracker) Events() []TrackerEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TrackerEvent(nil), t.events...)
}

// Len returns the number of tracked families.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}
