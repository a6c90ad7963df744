// Package state implements the flags/events/settings/checked-locations
// model that sits alongside Inventory.
package state

import (
	"sync"

	"github.com/archipelago-tracker/core/internal/domain"
)

// State holds everything about engine state besides item counts
// (that's Inventory's job). All mutation happens on the worker's single
// command-processing goroutine; the mutex exists for the scratch/test
// query paths that may read concurrently.
type State struct {
	mu sync.RWMutex

	flags    map[string]bool
	events   map[string]struct{}
	settings map[string]any

	// checkedLocations preserves insertion (check) order, so it is a
	// slice plus a membership set rather than a plain Go map.
	checkedOrder []string
	checked      map[string]struct{}

	regionReachability map[string]domain.ReachState
}

// New creates an empty State.
func New() *State {
	return &State{
		flags:               make(map[string]bool),
		events:               make(map[string]struct{}),
		settings:             make(map[string]any),
		checked:              make(map[string]struct{}),
		regionReachability:   make(map[string]domain.ReachState),
	}
}

// Clone returns an independent copy of every field, for scratch
// evaluation paths (evaluateLocationAccessibilityForTest) that must not
// let a reachability recompute touch the live checked-set/events/flags.
func (s *State) Clone() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &State{
		flags:              make(map[string]bool, len(s.flags)),
		events:             make(map[string]struct{}, len(s.events)),
		settings:           make(map[string]any, len(s.settings)),
		checked:            make(map[string]struct{}, len(s.checked)),
		checkedOrder:       make([]string, len(s.checkedOrder)),
		regionReachability: make(map[string]domain.ReachState, len(s.regionReachability)),
	}
	for k, v := range s.flags {
		out.flags[k] = v
	}
	for k := range s.events {
		out.events[k] = struct{}{}
	}
	for k, v := range s.settings {
		out.settings[k] = v
	}
	for k := range s.checked {
		out.checked[k] = struct{}{}
	}
	copy(out.checkedOrder, s.checkedOrder)
	for k, v := range s.regionReachability {
		out.regionReachability[k] = v
	}
	return out
}

// HasFlag reports whether a boolean flag is set.
func (s *State) HasFlag(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name]
}

// SetFlag sets a boolean flag.
func (s *State) SetFlag(name string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = value
}

// ClearFlag removes a flag entirely (HasFlag then reports false).
func (s *State) ClearFlag(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, name)
}

// HasEvent reports whether an event item is currently active.
func (s *State) HasEvent(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[name]
	return ok
}

// ProcessEventItem activates an event. Implements inventory.EventHook so
// Inventory.Add can notify State directly when an event item is added.
func (s *State) ProcessEventItem(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[name] = struct{}{}
}

// ClearEvent deactivates a single event.
func (s *State) ClearEvent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, name)
}

// ClearAllEvents deactivates every event (used by clearEventItems).
func (s *State) ClearAllEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]struct{})
}

// EventsSnapshot returns a copy of the active event set as a bool map,
// matching the Snapshot.Events wire shape.
func (s *State) EventsSnapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.events))
	for name := range s.events {
		out[name] = true
	}
	return out
}

// FlagsSnapshot returns a copy of the flag map.
func (s *State) FlagsSnapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// Setting returns a per-player setting value.
func (s *State) Setting(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[name]
	return v, ok
}

// SetSetting sets a setting value.
func (s *State) SetSetting(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[name] = value
}

// SettingsSnapshot returns a copy of the settings map.
func (s *State) SettingsSnapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

// IsLocationChecked reports whether a location has been checked.
func (s *State) IsLocationChecked(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.checked[name]
	return ok
}

// MarkChecked adds a location to the checked set if not already present,
// preserving insertion order. Returns true if it was newly added.
func (s *State) MarkChecked(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checked[name]; ok {
		return false
	}
	s.checked[name] = struct{}{}
	s.checkedOrder = append(s.checkedOrder, name)
	return true
}

// UnmarkChecked removes a location from the checked set.
func (s *State) UnmarkChecked(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checked[name]; !ok {
		return
	}
	delete(s.checked, name)
	for i, n := range s.checkedOrder {
		if n == name {
			s.checkedOrder = append(s.checkedOrder[:i], s.checkedOrder[i+1:]...)
			break
		}
	}
}

// ReplaceChecked replaces the checked set wholesale, in the given
// order, used by syncCheckedLocationsFromServer.
func (s *State) ReplaceChecked(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked = make(map[string]struct{}, len(names))
	s.checkedOrder = make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := s.checked[n]; ok {
			continue
		}
		s.checked[n] = struct{}{}
		s.checkedOrder = append(s.checkedOrder, n)
	}
}

// CheckedLocations returns the checked set in insertion order.
func (s *State) CheckedLocations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.checkedOrder))
	copy(out, s.checkedOrder)
	return out
}

// IsRegionReachable returns the current cached ternary status for a
// region. Regions never visited by the last BFS default to Unreachable.
func (s *State) IsRegionReachable(name string) domain.ReachState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regionReachability[name]
}

// SetRegionReachability overwrites the whole reachability map, called by
// the reachability engine after each recompute.
func (s *State) SetRegionReachability(m map[string]domain.ReachState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regionReachability = m
}

// RegionReachabilitySnapshot returns a copy keyed by region name with
// string values, matching the Snapshot wire shape.
func (s *State) RegionReachabilitySnapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.regionReachability))
	for k, v := range s.regionReachability {
		out[k] = v.String()
	}
	return out
}

// Reset clears inventory-independent mutable state for
// clearStateAndReset: checked locations and events are cleared but
// settings are preserved.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]struct{})
	s.checked = make(map[string]struct{})
	s.checkedOrder = nil
	s.flags = make(map[string]bool)
	s.regionReachability = make(map[string]domain.ReachState)
}
