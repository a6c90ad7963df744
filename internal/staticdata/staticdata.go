// Package staticdata implements StaticData: the immutable tables a
// loaded rules JSON blob produces, plus the loader that validates
// referential integrity before swapping it in.
package staticdata

import (
	"github.com/archipelago-tracker/core/internal/domain"
)

// StaticData is replaced wholesale on every successful loadRules
// command. Every field is read-only once Load returns.
type StaticData struct {
	GameName    string
	PlayerID    int
	RulesSource string

	Items       map[string]domain.Item
	ItemsByPlayer map[int]map[string]domain.Item

	Regions   map[string]domain.Region
	Locations map[string]domain.Location
	Exits     map[string]domain.Exit
	Dungeons  map[string]domain.Dungeon

	Progression domain.ProgressionMapping
	Groups      map[string]map[string]struct{}

	Settings      map[string]any
	StartRegions  []string
	StartingItems map[string]int

	OriginalLocationOrder []string
	OriginalExitOrder     []string
	OriginalRegionOrder   []string
}

// LocationsByRegion returns every Location belonging to a region, in
// original order.
func (sd *StaticData) LocationsByRegion(region string) []domain.Location {
	r, ok := sd.Regions[region]
	if !ok {
		return nil
	}
	out := make([]domain.Location, 0, len(r.Locations))
	for _, ln := range r.Locations {
		if loc, ok := sd.Locations[ln]; ok {
			out = append(out, loc)
		}
	}
	return out
}

// EventLocations returns every Location flagged as an event sentinel,
// in original order — used by the reachability engine's auto-collect
// pass.
func (sd *StaticData) EventLocations() []domain.Location {
	out := make([]domain.Location, 0)
	for _, name := range sd.OriginalLocationOrder {
		loc, ok := sd.Locations[name]
		if ok && loc.Event {
			out = append(out, loc)
		}
	}
	return out
}
