package staticdata

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/archipelago-tracker/core/internal/domain"
	domainerrors "github.com/archipelago-tracker/core/internal/domain/errors"
)

// rulesDocument is the top-level rules JSON shape. Every per-player
// field is read through perPlayerSection, which accepts either the
// nested (per-player) form or the legacy flat form.
type rulesDocument struct {
	GameName           string          `json:"game_name"`
	Regions            json.RawMessage `json:"regions"`
	Items              json.RawMessage `json:"items"`
	ItemData           json.RawMessage `json:"itemData"`
	ItemGroups         json.RawMessage `json:"item_groups"`
	ProgressionMapping json.RawMessage `json:"progression_mapping"`
	Settings           json.RawMessage `json:"settings"`
	StartRegions       json.RawMessage `json:"start_regions"`
	StartingItems      json.RawMessage `json:"starting_items"`
	Exits              json.RawMessage `json:"exits"`
	Dungeons           json.RawMessage `json:"dungeons"`
}

type itemJSON struct {
	Groups      []string `json:"groups"`
	Event       bool     `json:"event"`
	Advancement bool     `json:"advancement"`
	Priority    bool     `json:"priority"`
}

type locationJSON struct {
	Name       string    `json:"name"`
	Player     int       `json:"player"`
	AccessRule *ruleJSON `json:"access_rule"`
	Item       *struct {
		Name   string `json:"name"`
		Player int    `json:"player"`
	} `json:"item"`
	Event bool `json:"event"`
}

type exitJSON struct {
	Name            string    `json:"name"`
	ConnectedRegion string    `json:"connected_region"`
	AccessRule      *ruleJSON `json:"access_rule"`
}

type regionJSON struct {
	Exits        []exitJSON     `json:"exits"`
	Locations    []locationJSON `json:"locations"`
	RegionRules  []*ruleJSON    `json:"region_rules"`
	IsLightWorld bool           `json:"is_light_world"`
	IsDarkWorld  bool           `json:"is_dark_world"`
	Dungeon      string         `json:"dungeon"`
}

type progressionEntryJSON struct {
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Provides []string `json:"provides"`
}

type dungeonJSON struct {
	Regions []string `json:"regions"`
}

// perPlayerSection accepts either `{"1": {...}, "2": {...}}` (nested) or
// a bare `{...}` or `[...]` (legacy flat, implicitly player "1"): a
// permissive reader accepts either the nested (per-player) form or a
// legacy flat form, wrapping the latter under player 1.
func perPlayerSection(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(raw) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		return map[string]json.RawMessage{"1": raw}, nil
	}

	var candidate map[string]json.RawMessage
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return nil, fmt.Errorf("decode section: %w", err)
	}

	allNumericKeys := len(candidate) > 0
	for k := range candidate {
		if _, err := strconv.Atoi(k); err != nil {
			allNumericKeys = false
			break
		}
	}
	if allNumericKeys {
		return candidate, nil
	}

	return map[string]json.RawMessage{"1": raw}, nil
}

// Load parses a rules JSON document for the given player id and returns
// a fully validated StaticData, or a *domainerrors.LoadError. On error
// the caller must keep whatever StaticData it already had — Load never
// partially constructs the result it returns.
func Load(raw []byte, playerID int, rulesSource string) (*StaticData, error) {
	var doc rulesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domainerrors.NewLoadError("", "malformed rules document", err)
	}

	pid := strconv.Itoa(playerID)

	regionsByPlayer, err := perPlayerSection(doc.Regions)
	if err != nil {
		return nil, domainerrors.NewLoadError(pid, "invalid regions section", err)
	}
	regionsRaw, ok := regionsByPlayer[pid]
	if !ok {
		return nil, domainerrors.NewLoadError(pid, "no regions for player", nil)
	}
	var regionDocs map[string]regionJSON
	if err := json.Unmarshal(regionsRaw, &regionDocs); err != nil {
		return nil, domainerrors.NewLoadError(pid, "invalid region entries", err)
	}

	itemsByPlayer, _ := perPlayerSection(doc.Items)
	if len(doc.ItemData) > 0 {
		extra, _ := perPlayerSection(doc.ItemData)
		for k, v := range extra {
			if _, ok := itemsByPlayer[k]; !ok {
				itemsByPlayer[k] = v
			}
		}
	}
	var itemDocs map[string]itemJSON
	if raw, ok := itemsByPlayer[pid]; ok {
		if err := json.Unmarshal(raw, &itemDocs); err != nil {
			return nil, domainerrors.NewLoadError(pid, "invalid items section", err)
		}
	}

	groupsByPlayer, _ := perPlayerSection(doc.ItemGroups)
	var groupDocs map[string][]string
	if raw, ok := groupsByPlayer[pid]; ok {
		_ = json.Unmarshal(raw, &groupDocs)
	}

	progByPlayer, _ := perPlayerSection(doc.ProgressionMapping)
	progression := make(domain.ProgressionMapping)
	if raw, ok := progByPlayer[pid]; ok {
		var progDocs map[string][]progressionEntryJSON
		if err := json.Unmarshal(raw, &progDocs); err != nil {
			return nil, domainerrors.NewLoadError(pid, "invalid progression_mapping section", err)
		}
		for base, entries := range progDocs {
			list := make([]domain.ProgressionEntry, 0, len(entries))
			for _, e := range entries {
				list = append(list, domain.ProgressionEntry{Name: e.Name, Level: e.Level, Provides: e.Provides})
			}
			progression[base] = list
		}
	}

	settingsByPlayer, _ := perPlayerSection(doc.Settings)
	settings := map[string]any{}
	if raw, ok := settingsByPlayer[pid]; ok {
		_ = json.Unmarshal(raw, &settings)
	}

	startRegionsByPlayer, _ := perPlayerSection(doc.StartRegions)
	var startRegions []string
	if raw, ok := startRegionsByPlayer[pid]; ok {
		_ = json.Unmarshal(raw, &startRegions)
	}

	startingItemsByPlayer, _ := perPlayerSection(doc.StartingItems)
	startingItems := map[string]int{}
	if raw, ok := startingItemsByPlayer[pid]; ok {
		_ = json.Unmarshal(raw, &startingItems)
	}

	dungeonsByPlayer, _ := perPlayerSection(doc.Dungeons)
	dungeons := map[string]domain.Dungeon{}
	if raw, ok := dungeonsByPlayer[pid]; ok {
		var dungeonDocs map[string]dungeonJSON
		_ = json.Unmarshal(raw, &dungeonDocs)
		for name, d := range dungeonDocs {
			dungeons[name] = domain.Dungeon{Name: name, Regions: d.Regions}
		}
	}

	sd := &StaticData{
		GameName:      doc.GameName,
		PlayerID:      playerID,
		RulesSource:   rulesSource,
		Items:         make(map[string]domain.Item),
		ItemsByPlayer: map[int]map[string]domain.Item{playerID: {}},
		Regions:       make(map[string]domain.Region),
		Locations:     make(map[string]domain.Location),
		Exits:         make(map[string]domain.Exit),
		Dungeons:      dungeons,
		Progression:   progression,
		Groups:        make(map[string]map[string]struct{}),
		Settings:      settings,
		StartRegions:  startRegions,
		StartingItems: startingItems,
	}

	for name, it := range itemDocs {
		item := domain.NewItem(name, it.Groups, it.Event, it.Advancement, it.Priority)
		sd.Items[name] = item
		sd.ItemsByPlayer[playerID][name] = item
		for _, g := range it.Groups {
			if sd.Groups[g] == nil {
				sd.Groups[g] = make(map[string]struct{})
			}
			sd.Groups[g][name] = struct{}{}
		}
	}
	for group, members := range groupDocs {
		if sd.Groups[group] == nil {
			sd.Groups[group] = make(map[string]struct{})
		}
		for _, m := range members {
			sd.Groups[group][m] = struct{}{}
		}
	}

	for regionName, rd := range regionDocs {
		region := domain.Region{
			Name:         regionName,
			RegionRules:  rulesList(rd.RegionRules),
			Dungeon:      rd.Dungeon,
			Tags:         map[string]struct{}{},
			IsLightWorld: rd.IsLightWorld,
			IsDarkWorld:  rd.IsDarkWorld,
		}

		for _, ed := range rd.Exits {
			exit := domain.Exit{
				Name:            ed.Name,
				ConnectedRegion: ed.ConnectedRegion,
				AccessRule:      ed.AccessRule.toDomain(),
			}
			sd.Exits[ed.Name] = exit
			sd.OriginalExitOrder = append(sd.OriginalExitOrder, ed.Name)
			region.Exits = append(region.Exits, ed.Name)
		}

		for _, ld := range rd.Locations {
			loc := domain.Location{
				Name:       ld.Name,
				Player:     ld.Player,
				Region:     regionName,
				AccessRule: ld.AccessRule.toDomain(),
				Event:      ld.Event,
			}
			if ld.Item != nil {
				loc.Item = &domain.ItemRef{Name: ld.Item.Name, Player: ld.Item.Player}
			}
			sd.Locations[ld.Name] = loc
			sd.OriginalLocationOrder = append(sd.OriginalLocationOrder, ld.Name)
			region.Locations = append(region.Locations, ld.Name)
		}

		sd.Regions[regionName] = region
		sd.OriginalRegionOrder = append(sd.OriginalRegionOrder, regionName)
	}

	if err := validate(sd); err != nil {
		return nil, err
	}

	return sd, nil
}

func rulesList(in []*ruleJSON) []*domain.Rule {
	out := make([]*domain.Rule, 0, len(in))
	for _, r := range in {
		out = append(out, r.toDomain())
	}
	return out
}

// validate enforces the referential-integrity invariant: every
// Region.exits and Region.locations entry references an existing
// Exit/Location, and every Exit.connected_region references an
// existing region or is empty.
func validate(sd *StaticData) error {
	for _, region := range sd.Regions {
		for _, exitName := range region.Exits {
			if _, ok := sd.Exits[exitName]; !ok {
				return domainerrors.NewLoadError(strconv.Itoa(sd.PlayerID),
					fmt.Sprintf("region %q references unknown exit %q", region.Name, exitName), nil)
			}
		}
		for _, locName := range region.Locations {
			if _, ok := sd.Locations[locName]; !ok {
				return domainerrors.NewLoadError(strconv.Itoa(sd.PlayerID),
					fmt.Sprintf("region %q references unknown location %q", region.Name, locName), nil)
			}
		}
	}
	for _, exit := range sd.Exits {
		if exit.ConnectedRegion == "" {
			continue
		}
		if _, ok := sd.Regions[exit.ConnectedRegion]; !ok {
			return domainerrors.NewLoadError(strconv.Itoa(sd.PlayerID),
				fmt.Sprintf("exit %q connects to unknown region %q", exit.Name, exit.ConnectedRegion), nil)
		}
	}
	return nil
}
