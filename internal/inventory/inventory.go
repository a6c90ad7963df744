// Package inventory implements the mutable item-count model: a map
// from item name to a non-negative count, an exclusion set, and
// progressive-item resolution.
package inventory

import (
	"sync"

	"github.com/archipelago-tracker/core/internal/domain"
)

// EventHook is notified when an item that is also an event sentinel is
// added, so State can activate the corresponding event.
type EventHook interface {
	ProcessEventItem(name string)
}

// Inventory holds item counts for one player. Reads and writes are
// synchronized because commands run on the worker's single goroutine but
// diagnostic/test paths (evaluateRuleRemote) may read concurrently with
// a pending mutation from a retried command.
type Inventory struct {
	mu sync.RWMutex

	counts     map[string]int
	exclude    map[string]struct{}
	progression domain.ProgressionMapping
	groups     map[string]map[string]struct{} // group -> item names
	items      map[string]domain.Item

	hook EventHook
}

// New creates an Inventory bound to the given item table, group index,
// and progression mapping. All three are treated as immutable static
// data.
func New(items map[string]domain.Item, groups map[string]map[string]struct{}, progression domain.ProgressionMapping, hook EventHook) *Inventory {
	return &Inventory{
		counts:      make(map[string]int),
		exclude:     make(map[string]struct{}),
		progression: progression,
		groups:      groups,
		items:       items,
		hook:        hook,
	}
}

// SetExcluded marks item names as forbidden for the current context.
// Exclusion applies at query time: removing it does not retroactively
// resurrect counts that were added while excluded.
func (inv *Inventory) SetExcluded(names []string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.exclude = make(map[string]struct{}, len(names))
	for _, n := range names {
		inv.exclude[n] = struct{}{}
	}
}

func (inv *Inventory) isExcludedLocked(name string) bool {
	_, ok := inv.exclude[name]
	return ok
}

// Add increments an item's count by n (default 1 at call sites). A
// no-op if the item is excluded. If the item is an event sentinel, the
// event hook fires exactly once per Add call (not once per unit).
func (inv *Inventory) Add(name string, n int) {
	inv.mu.Lock()
	if inv.isExcludedLocked(name) {
		inv.mu.Unlock()
		return
	}
	inv.counts[name] += n
	isEvent := inv.items[name].Event
	inv.mu.Unlock()

	if isEvent && inv.hook != nil {
		inv.hook.ProcessEventItem(name)
	}
}

// Remove decrements an item's count by n, saturating at zero.
func (inv *Inventory) Remove(name string, n int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	c := inv.counts[name] - n
	if c < 0 {
		c = 0
	}
	inv.counts[name] = c
}

// Count returns the direct count of an item, ignoring progression and
// exclusion (progression/exclusion only affect Has/CountGroup).
func (inv *Inventory) Count(name string) int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.counts[name]
}

// Has implements the universal invariant:
//
//	has(x) = true iff x is an active event, or
//	         (x not excluded and (directCount(x) > 0 or some
//	         progression mapping resolves to x at the current base count)).
//
// isActiveEvent is supplied by the caller (typically State.HasEvent) because
// Inventory does not itself track which events are active.
func (inv *Inventory) Has(name string, isActiveEvent bool) bool {
	if isActiveEvent {
		return true
	}

	inv.mu.RLock()
	defer inv.mu.RUnlock()

	if inv.isExcludedLocked(name) {
		return false
	}
	if inv.counts[name] > 0 {
		return true
	}
	for base, entries := range inv.progression {
		baseCount := inv.counts[base]
		if baseCount == 0 {
			continue
		}
		for _, e := range entries {
			if e.Level <= baseCount && e.Name == name {
				return true
			}
		}
	}
	return false
}

// CountGroup sums the direct counts of every item in the named group,
// unless "Any"+group is excluded, in which case it is 0.
func (inv *Inventory) CountGroup(group string) int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	if inv.isExcludedLocked("Any" + group) {
		return 0
	}
	total := 0
	for item := range inv.groups[group] {
		total += inv.counts[item]
	}
	return total
}

// Resolve returns every progression-ladder entry of `item` for
// diagnostics.
func (inv *Inventory) Resolve(item string) []domain.ProgressionEntry {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	entries := inv.progression[item]
	out := make([]domain.ProgressionEntry, len(entries))
	copy(out, entries)
	return out
}

// Snapshot returns a copy of direct item counts, for building a
// Snapshot or for a scratch test inventory.
func (inv *Inventory) Snapshot() map[string]int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make(map[string]int, len(inv.counts))
	for k, v := range inv.counts {
		out[k] = v
	}
	return out
}

// Clear empties all counts, keeping the static progression/group/item
// tables and exclusion set intact.
func (inv *Inventory) Clear() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.counts = make(map[string]int)
}

// Clone returns a new Inventory sharing the same static tables but with
// an independent counts map, seeded from the current counts. Used by
// evaluateLocationAccessibilityForTest / applyTestInventoryAndEvaluate
// to avoid mutating the live inventory.
func (inv *Inventory) Clone() *Inventory {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	clone := &Inventory{
		counts:      make(map[string]int, len(inv.counts)),
		exclude:     make(map[string]struct{}, len(inv.exclude)),
		progression: inv.progression,
		groups:      inv.groups,
		items:       inv.items,
	}
	for k, v := range inv.counts {
		clone.counts[k] = v
	}
	for k := range inv.exclude {
		clone.exclude[k] = struct{}{}
	}
	return clone
}
