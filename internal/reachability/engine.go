// Package reachability implements the region/location reachability
// engine: BFS over exits whose access rules pass, region_rules
// downgrade, event auto-collection to a fix-point, and newlyReachable
// diffing against the previous recompute.
package reachability

import (
	"sync"

	"github.com/archipelago-tracker/core/internal/domain"
	"github.com/archipelago-tracker/core/internal/helpers"
	"github.com/archipelago-tracker/core/internal/inventory"
	"github.com/archipelago-tracker/core/internal/rules"
	"github.com/archipelago-tracker/core/internal/staticdata"
	"github.com/archipelago-tracker/core/internal/state"
)

// Engine owns the derived reachability picture for one player. Every
// mutating command on Inventory/State must call Invalidate; Engine
// itself never mutates them except to write each recompute's region
// reachability into State and to mark auto-collected events checked
// and active.
type Engine struct {
	mu sync.Mutex

	inv     *inventory.Inventory
	st      *state.State
	static  *staticdata.StaticData
	helpers *helpers.Registry
	player  int

	gen     generationCounter
	dirty   bool
	inBatch bool

	autoCollectEvents bool

	regionStatus       map[string]domain.ReachState
	locationAccessible map[string]bool
	previousReachable  map[domain.LocationPlayer]struct{}
	newlyReachable     []domain.LocationPlayer
}

// New creates an Engine bound to the given player's mutable state and
// static data. The engine starts dirty: the first read triggers a
// recompute.
func New(inv *inventory.Inventory, st *state.State, static *staticdata.StaticData, helperReg *helpers.Registry, player int) *Engine {
	return &Engine{
		inv:                inv,
		st:                 st,
		static:             static,
		helpers:            helperReg,
		player:             player,
		dirty:              true,
		regionStatus:       make(map[string]domain.ReachState),
		locationAccessible: make(map[string]bool),
		previousReachable:  make(map[domain.LocationPlayer]struct{}),
	}
}

// Invalidate marks the cached reachability picture stale. Called after
// every state-changing command (item add/remove, check/uncheck,
// setting/flag change, rules reload).
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = true
	e.gen.bump()
}

// SetAutoCollectEvents toggles the auto_collect_events setting that
// gates the event fix-point loop.
func (e *Engine) SetAutoCollectEvents(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoCollectEvents = enabled
	e.dirty = true
}

// BeginBatch defers recomputation until CommitBatch, so a multi-step
// update (many item adds) recomputes once instead of once per step.
func (e *Engine) BeginBatch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inBatch = true
}

// CommitBatch ends deferral and recomputes immediately if dirty.
func (e *Engine) CommitBatch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inBatch = false
	e.ensureFreshLocked()
}

func (e *Engine) ensureFreshLocked() {
	if e.dirty && !e.inBatch {
		e.recomputeLocked()
	}
}

// RegionReachability returns a region's current ternary status,
// recomputing first if stale and not inside a batch.
func (e *Engine) RegionReachability(name string) domain.ReachState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()
	return e.regionStatus[name]
}

// LocationAccessibility reports whether a location is currently
// accessible: its region is reachable/checked and its own access rule
// holds.
func (e *Engine) LocationAccessibility(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()
	return e.locationAccessible[name]
}

// NewlyReachable returns the locations that became accessible in the
// most recent recompute that were not accessible in the one before it.
func (e *Engine) NewlyReachable() []domain.LocationPlayer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()
	out := make([]domain.LocationPlayer, len(e.newlyReachable))
	copy(out, e.newlyReachable)
	return out
}

// CanReach answers a can_reach-style query against the last completed
// recompute (or triggers one if stale), for callers outside the
// recompute itself — e.g. statemanager's evaluateRuleRemote.
func (e *Engine) CanReach(name, kind string, player int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()
	return e.canReachLocked(name, kind, player)
}

// RegionReachabilitySnapshot returns a copy of the whole region status
// map, for Snapshot assembly.
func (e *Engine) RegionReachabilitySnapshot() map[string]domain.ReachState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()
	out := make(map[string]domain.ReachState, len(e.regionStatus))
	for k, v := range e.regionStatus {
		out[k] = v
	}
	return out
}

// LocationAccessibilitySnapshot returns a copy of the whole location
// accessibility map.
func (e *Engine) LocationAccessibilitySnapshot() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()
	out := make(map[string]bool, len(e.locationAccessible))
	for k, v := range e.locationAccessible {
		out[k] = v
	}
	return out
}

// canReachLocked must be called with e.mu held. It reads whatever
// region/location picture currently exists — mid-recompute (from a
// rule context's CanReach closure) or post-recompute (from the public
// CanReach) — without itself recomputing or re-locking.
func (e *Engine) canReachLocked(name, kind string, player int) bool {
	switch kind {
	case "Location":
		return e.locationAccessible[name]
	case "Entrance":
		exit, ok := e.static.Exits[name]
		if !ok {
			return false
		}
		return e.regionReachableLocked(exit.ConnectedRegion)
	default:
		return e.regionReachableLocked(name)
	}
}

func (e *Engine) regionReachableLocked(name string) bool {
	st, ok := e.regionStatus[name]
	return ok && st != domain.Unreachable
}

func (e *Engine) ruleContext() *rules.Context {
	return &rules.Context{
		Inventory: e.inv,
		State:     e.st,
		Static:    e.static,
		Helpers:   e.helpers,
		Player:    e.player,
		CanReach:  e.canReachLocked,
	}
}

// recomputeLocked runs the full BFS + event fix-point + accessibility
// + newlyReachable pipeline. Must be called with e.mu held.
func (e *Engine) recomputeLocked() {
	for {
		e.bfsOnePass()
		e.computeLocationAccessibilityLocked()
		if !e.autoCollectEvents {
			break
		}
		if !e.collectEventsOnePass() {
			break
		}
	}

	e.st.SetRegionReachability(copyRegionStatus(e.regionStatus))

	current := e.reachableLocationSetLocked()
	e.newlyReachable = diffLocationSets(current, e.previousReachable)
	e.previousReachable = current

	e.dirty = false
}

func (e *Engine) bfsOnePass() {
	e.regionStatus = make(map[string]domain.ReachState)
	entered := make(map[string]bool)
	queue := make([]string, 0, len(e.static.StartRegions))

	for _, r := range e.static.StartRegions {
		if _, ok := e.static.Regions[r]; !ok {
			continue
		}
		if entered[r] {
			continue
		}
		e.regionStatus[r] = domain.Reachable
		entered[r] = true
		queue = append(queue, r)
	}

	ctx := e.ruleContext()

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		region, ok := e.static.Regions[cur]
		if !ok {
			continue
		}

		if !e.regionRulesPass(region, ctx) {
			e.regionStatus[cur] = domain.Unreachable
		}

		for _, exitName := range region.Exits {
			exit, ok := e.static.Exits[exitName]
			if !ok {
				continue
			}
			target := exit.ConnectedRegion
			if target == "" || entered[target] {
				continue
			}
			if rules.EvaluateBool(exit.AccessRule, ctx) {
				e.regionStatus[target] = domain.Reachable
				entered[target] = true
				queue = append(queue, target)
			}
		}
	}

	for name, st := range e.regionStatus {
		if st == domain.Unreachable {
			continue
		}
		if e.allLocationsChecked(name) {
			e.regionStatus[name] = domain.Checked
		}
	}
}

func (e *Engine) regionRulesPass(region domain.Region, ctx *rules.Context) bool {
	for _, rule := range region.RegionRules {
		if !rules.EvaluateBool(rule, ctx) {
			return false
		}
	}
	return true
}

func (e *Engine) allLocationsChecked(region string) bool {
	for _, loc := range e.static.LocationsByRegion(region) {
		if !e.st.IsLocationChecked(loc.Name) {
			return false
		}
	}
	return true
}

func (e *Engine) computeLocationAccessibilityLocked() {
	e.locationAccessible = make(map[string]bool, len(e.static.Locations))
	ctx := e.ruleContext()
	for name, loc := range e.static.Locations {
		st := e.regionStatus[loc.Region]
		reachable := st == domain.Reachable || st == domain.Checked
		e.locationAccessible[name] = reachable && rules.EvaluateBool(loc.AccessRule, ctx)
	}
}

// collectEventsOnePass marks every accessible, unchecked event location
// as checked and activates its event item. Returns true if it changed
// anything, so the caller knows whether another BFS pass is warranted.
func (e *Engine) collectEventsOnePass() bool {
	changed := false
	for _, loc := range e.static.EventLocations() {
		if e.st.IsLocationChecked(loc.Name) {
			continue
		}
		if !e.locationAccessible[loc.Name] {
			continue
		}
		e.st.MarkChecked(loc.Name)
		eventName := loc.Name
		if loc.Item != nil && loc.Item.Name != "" {
			eventName = loc.Item.Name
		}
		e.st.ProcessEventItem(eventName)
		changed = true
	}
	return changed
}

func (e *Engine) reachableLocationSetLocked() map[domain.LocationPlayer]struct{} {
	out := make(map[domain.LocationPlayer]struct{})
	for name, accessible := range e.locationAccessible {
		if !accessible {
			continue
		}
		loc, ok := e.static.Locations[name]
		if !ok {
			continue
		}
		out[domain.LocationPlayer{Player: loc.Player, Location: name}] = struct{}{}
	}
	return out
}

func copyRegionStatus(in map[string]domain.ReachState) map[string]domain.ReachState {
	out := make(map[string]domain.ReachState, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func diffLocationSets(current, previous map[domain.LocationPlayer]struct{}) []domain.LocationPlayer {
	var out []domain.LocationPlayer
	for lp := range current {
		if _, ok := previous[lp]; !ok {
			out = append(out, lp)
		}
	}
	return out
}
