// Package spoiler replays a randomizer's sphere-by-sphere ground
// truth against a StateManager and reports where the engine's
// accessible-location set diverges from what the spoiler log says it
// should be. The exact on-disk spoiler log format is a concern of
// whatever harness produces a Log value; this package only cares about
// the sphere sequence once it has been parsed into that shape.
package spoiler

import (
	"github.com/archipelago-tracker/core/internal/statemanager"
)

// Sphere is one logical time-slice: the items granted during it and
// the locations the spoiler log says become accessible once they are
// granted.
type Sphere struct {
	Items     []string `json:"items"`
	Locations []string `json:"locations"`
}

// Log is an ordered sphere sequence, sphere 0 first.
type Log struct {
	Spheres []Sphere `json:"spheres"`
}

// Mismatch records one location whose accessibility disagreed with
// the spoiler log's expectation at a given sphere.
type Mismatch struct {
	SphereIndex int
	Location    string
	Expected    bool
	Actual      bool
}

// Replayer drives a StateManager through a Log.
type Replayer struct {
	sm *statemanager.StateManager
}

// NewReplayer wraps an already-loaded StateManager (loadRules must
// have already succeeded against the same seed the log was generated
// from).
func NewReplayer(sm *statemanager.StateManager) *Replayer {
	return &Replayer{sm: sm}
}

// Replay grants each sphere's items in order and, after each one,
// compares the full accessible-location set against the cumulative set
// the log has declared accessible so far. It returns every mismatch
// found; an empty slice with a nil error means the log and the engine
// agree sphere by sphere.
func (r *Replayer) Replay(log Log) ([]Mismatch, error) {
	var mismatches []Mismatch
	expected := make(map[string]bool)

	for sphereIndex, sphere := range log.Spheres {
		for _, item := range sphere.Items {
			if _, err := r.sm.AddItemToInventory(item, 1); err != nil {
				return mismatches, err
			}
		}
		for _, loc := range sphere.Locations {
			expected[loc] = true
		}

		snap, err := r.sm.GetFullSnapshot()
		if err != nil {
			return mismatches, err
		}
		for loc, actual := range snap.LocationAccessibility {
			if want := expected[loc]; want != actual {
				mismatches = append(mismatches, Mismatch{
					SphereIndex: sphereIndex,
					Location:    loc,
					Expected:    want,
					Actual:      actual,
				})
			}
		}
	}

	return mismatches, nil
}
