package statemanager

import (
	"encoding/json"

	"github.com/archipelago-tracker/core/internal/domain"
	domainerrors "github.com/archipelago-tracker/core/internal/domain/errors"
	"github.com/archipelago-tracker/core/internal/inventory"
	"github.com/archipelago-tracker/core/internal/reachability"
	"github.com/archipelago-tracker/core/internal/rules"
	"github.com/archipelago-tracker/core/internal/staticdata"
	"github.com/archipelago-tracker/core/internal/state"
)

// LoadRulesRequest is the loadRules command payload: the raw rules JSON
// document plus which player this tracker instance follows.
type LoadRulesRequest struct {
	RulesData   []byte
	PlayerID    int
	RulesSource string
}

// RulesLoadedConfirmation is loadRules' success response: the freshly
// parsed static data alongside the first snapshot taken against it.
type RulesLoadedConfirmation struct {
	Static   *staticdata.StaticData
	Snapshot *domain.Snapshot
}

// TestEvaluationResult is applyTestInventoryAndEvaluate's response: the
// mutated scratch inventory's counts, the resulting snapshot, and
// whether the target location ended up accessible.
type TestEvaluationResult struct {
	NewSnapshot               *domain.Snapshot
	NewInventory              map[string]int
	LocationAccessibilityResult bool
}

// LoadRules parses rulesData and, on success, atomically replaces the
// tracked player's StaticData/Inventory/State/Engine. On any error the
// previous state (if any) is left untouched.
func (sm *StateManager) LoadRules(req LoadRulesRequest) (*RulesLoadedConfirmation, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	static, err := staticdata.Load(req.RulesData, req.PlayerID, req.RulesSource)
	if err != nil {
		return nil, err
	}

	sm.helpers.SetGame(static.GameName)

	st := state.New()
	inv := inventory.New(static.Items, static.Groups, static.Progression, st)
	engine := reachability.New(inv, st, static, sm.helpers, req.PlayerID)

	for name, n := range static.StartingItems {
		inv.Add(name, n)
	}

	sm.player = req.PlayerID
	sm.static = static
	sm.inv = inv
	sm.state = st
	sm.engine = engine
	sm.checkRecords = make(map[string]checkRecord)

	engine.Invalidate()

	return &RulesLoadedConfirmation{Static: static, Snapshot: sm.buildSnapshotLocked()}, nil
}

// checkRecord remembers what a successful checkLocation call actually
// added, so uncheckLocation can undo exactly that and nothing else.
type checkRecord struct {
	itemAdded string
}

// AddItemToInventory is not idempotent: calling it twice adds the item
// twice.
func (sm *StateManager) AddItemToInventory(item string, quantity int) (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	sm.inv.Add(item, quantity)
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// RemoveItemFromInventory saturates at zero; removing more than is held
// is not an error.
func (sm *StateManager) RemoveItemFromInventory(item string, quantity int) (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	sm.inv.Remove(item, quantity)
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// CheckLocation marks a location checked. Unless forceCheck is set, an
// inaccessible location is rejected with an AccessDeniedError and
// nothing changes. The placed item is added to inventory only if
// addItems is set, the location has an item, and that item's owner is
// the tracked player (multiworld gate).
func (sm *StateManager) CheckLocation(locationName string, addItems, forceCheck bool) (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}

	loc, ok := sm.static.Locations[locationName]
	if !ok {
		return nil, domainerrors.NewUnknownNameError("location", locationName)
	}

	if !forceCheck && !sm.engine.LocationAccessibility(locationName) {
		return nil, domainerrors.NewAccessDeniedError(locationName)
	}

	rec := checkRecord{}
	if addItems && loc.Item != nil && loc.Item.Player == sm.player {
		sm.inv.Add(loc.Item.Name, 1)
		rec.itemAdded = loc.Item.Name

		if useResolved, _ := toBool(sm.state.Setting("use_resolved_items")); useResolved {
			if policy, ok := sm.helpers.ResolvedItemPolicyFor(); ok {
				policy(sm.inv, loc.Item.Name, sm.inv.Count(loc.Item.Name))
			}
		}
	}

	sm.state.MarkChecked(locationName)
	sm.checkRecords[locationName] = rec
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// UncheckLocation reverses exactly what the corresponding CheckLocation
// call did: unmarks the location and, if an item was added at check
// time, removes it.
func (sm *StateManager) UncheckLocation(locationName string) (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}

	if rec, ok := sm.checkRecords[locationName]; ok {
		if rec.itemAdded != "" {
			sm.inv.Remove(rec.itemAdded, 1)
		}
		delete(sm.checkRecords, locationName)
	}
	sm.state.UnmarkChecked(locationName)
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// BeginBatchUpdate suspends recomputation until CommitBatchUpdate. The
// deferRegionComputation argument exists for wire-format parity; this
// engine's batch always defers, so it is accepted and ignored.
func (sm *StateManager) BeginBatchUpdate(deferRegionComputation bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return err
	}
	sm.engine.BeginBatch()
	return nil
}

// CommitBatchUpdate ends deferral and recomputes exactly once.
func (sm *StateManager) CommitBatchUpdate() (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	sm.engine.CommitBatch()
	return sm.buildSnapshotLocked(), nil
}

// SyncCheckedLocationsFromServer replaces the checked set wholesale.
// Items previously added by individual checkLocation calls are not
// retroactively removed; the caller is expected to pair this with a
// fresh inventory state if one is needed.
func (sm *StateManager) SyncCheckedLocationsFromServer(checkedLocationIDs []string) (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	sm.state.ReplaceChecked(checkedLocationIDs)
	sm.checkRecords = make(map[string]checkRecord)
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// ClearStateAndReset empties the inventory and resets checked
// locations, flags, events, and region reachability, preserving
// settings.
func (sm *StateManager) ClearStateAndReset() (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	sm.inv.Clear()
	sm.state.Reset()
	sm.checkRecords = make(map[string]checkRecord)
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// ClearEventItems deactivates every event without touching inventory or
// checked locations.
func (sm *StateManager) ClearEventItems() (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	sm.state.ClearAllEvents()
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// ApplyRuntimeState restores a previously saved inventory/checked-set
// pair (see domain.SavableState), for save/load.
func (sm *StateManager) ApplyRuntimeState(saved domain.SavableState) (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}

	sm.inv.Clear()
	for name, n := range saved.Inventory {
		sm.inv.Add(name, n)
	}
	sm.state.ReplaceChecked(saved.CheckedLocations)
	sm.checkRecords = make(map[string]checkRecord)
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// RecalculateAccessibility forces a fresh recompute even if the engine
// does not currently consider itself dirty.
func (sm *StateManager) RecalculateAccessibility() (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	sm.engine.Invalidate()
	return sm.buildSnapshotLocked(), nil
}

// EvaluateRuleRemote parses and evaluates a single rule document against
// the live inventory/state, with no side effects.
func (sm *StateManager) EvaluateRuleRemote(ruleJSON json.RawMessage) (bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return false, err
	}

	rule, err := staticdata.ParseRule(ruleJSON)
	if err != nil {
		return false, err
	}
	return rules.EvaluateBool(rule, sm.liveRuleContextLocked()), nil
}

// EvaluateLocationAccessibilityForTest answers "would this location be
// accessible if the inventory looked like this" without mutating
// anything: it builds a scratch inventory cloned from the live one,
// applies requiredItems/excludedItems, and evaluates the location's own
// access rule plus its region's reachability against that clone.
func (sm *StateManager) EvaluateLocationAccessibilityForTest(locationName string, requiredItems, excludedItems []string) (bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return false, err
	}

	loc, ok := sm.static.Locations[locationName]
	if !ok {
		return false, domainerrors.NewUnknownNameError("location", locationName)
	}

	scratchInv := sm.inv.Clone()
	for _, item := range requiredItems {
		scratchInv.Add(item, 1)
	}
	scratchInv.SetExcluded(excludedItems)
	scratchState := sm.state.Clone()

	scratchEngine := reachability.New(scratchInv, scratchState, sm.static, sm.helpers, sm.player)
	return scratchEngine.LocationAccessibility(loc.Name), nil
}

// ApplyTestInventoryAndEvaluate is EvaluateLocationAccessibilityForTest's
// mutating sibling: the scratch inventory it builds actually replaces
// the live one, and a fresh snapshot reflects the change.
func (sm *StateManager) ApplyTestInventoryAndEvaluate(locationName string, requiredItems, excludedItems []string) (*TestEvaluationResult, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}

	loc, ok := sm.static.Locations[locationName]
	if !ok {
		return nil, domainerrors.NewUnknownNameError("location", locationName)
	}

	for _, item := range requiredItems {
		sm.inv.Add(item, 1)
	}
	sm.inv.SetExcluded(excludedItems)
	sm.engine.Invalidate()

	result := sm.engine.LocationAccessibility(loc.Name)
	return &TestEvaluationResult{
		NewSnapshot:                  sm.buildSnapshotLocked(),
		NewInventory:                 sm.inv.Snapshot(),
		LocationAccessibilityResult: result,
	}, nil
}

// SetAutoCollectEventsConfig toggles the reachability engine's event
// fix-point loop.
func (sm *StateManager) SetAutoCollectEventsConfig(enabled bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return err
	}
	sm.engine.SetAutoCollectEvents(enabled)
	return nil
}

// SetSpoilerTestMode flags this session as exercising spoiler-log
// replay rather than live tracking; it has no effect on engine
// semantics beyond what callers choose to gate on it.
func (sm *StateManager) SetSpoilerTestMode(enabled bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.spoilerTestMode = enabled
	return nil
}

// SpoilerTestMode reports the current spoiler-test-mode flag.
func (sm *StateManager) SpoilerTestMode() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.spoilerTestMode
}

// Ping is the liveness no-op: it always succeeds once a StateManager
// exists, loaded or not, and echoes payload back verbatim so a caller
// can correlate a reply with a specific in-flight ping (e.g. to
// disambiguate a barrier against the command queue).
func (sm *StateManager) Ping(payload any) (any, error) { return payload, nil }

// GetFullSnapshot is a pure query: the current snapshot, recomputed
// first if stale.
func (sm *StateManager) GetFullSnapshot() (*domain.Snapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.requireLoadedLocked(); err != nil {
		return nil, err
	}
	return sm.buildSnapshotLocked(), nil
}

// liveRuleContextLocked builds a rules.Context for ad hoc evaluation
// against the live, already-loaded state. Caller must hold sm.mu.
func (sm *StateManager) liveRuleContextLocked() *rules.Context {
	return &rules.Context{
		Inventory: sm.inv,
		State:     sm.state,
		Static:    sm.static,
		Helpers:   sm.helpers,
		Player:    sm.player,
		CanReach:  sm.engine.CanReach,
	}
}

func toBool(v any, ok bool) (bool, bool) {
	if !ok {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}
