package statemanager

import (
	"github.com/archipelago-tracker/core/internal/domain"
)

// buildSnapshotLocked assembles a fresh, value-typed Snapshot from the
// current inventory/state/static-data/engine. StateManager never hands
// out a live reference into its own maps — every field here is a copy.
func (sm *StateManager) buildSnapshotLocked() *domain.Snapshot {
	// RegionReachabilitySnapshot is read through the engine (not
	// sm.state directly) so that a dirty engine recomputes first —
	// sm.state's own copy is only as fresh as the engine's last write
	// to it.
	regionReach := make(map[string]string)
	for name, st := range sm.engine.RegionReachabilitySnapshot() {
		regionReach[name] = st.String()
	}

	locationAccess := make(map[string]bool)
	for name := range sm.static.Locations {
		locationAccess[name] = sm.engine.LocationAccessibility(name)
	}

	newly := sm.engine.NewlyReachable()

	resolved := make(map[string][]string)
	counts := sm.inv.Snapshot()
	for base := range sm.static.Progression {
		n := counts[base]
		if n == 0 {
			continue
		}
		var names []string
		for _, e := range sm.static.Progression.ResolvedAt(base, n) {
			names = append(names, e.Name)
		}
		if len(names) > 0 {
			resolved[base] = names
		}
	}

	return &domain.Snapshot{
		Inventory:             counts,
		CheckedLocations:      sm.state.CheckedLocations(),
		Flags:                 sm.state.FlagsSnapshot(),
		Events:                sm.state.EventsSnapshot(),
		Settings:              sm.state.SettingsSnapshot(),
		RegionReachability:    regionReach,
		NewlyReachable:        newly,
		LocationAccessibility: locationAccess,
		InventoryResolved:     resolved,
		GameName:              sm.static.GameName,
		PlayerID:              sm.static.PlayerID,
		RulesSource:           sm.static.RulesSource,
	}
}
