// Package alttp registers the Link to the Past helper overrides: the
// scenario literals a tracker for this game leans on most — sword
// tier, bomb capacity, and glove-gated rock lifting — expressed against
// the shared helpers.View rather than any concrete inventory type.
package alttp

import (
	"github.com/archipelago-tracker/core/internal/helpers"
	"github.com/archipelago-tracker/core/internal/staticdata"
)

// GameName is the rules document game_name this pack overrides.
const GameName = "alttp"

const (
	bombBaseWithStart   = 10
	bombUpgradeCapacity = 5
)

// RegisterInto adds the alttp helper pack to reg, keyed under GameName.
func RegisterInto(reg *helpers.Registry) {
	reg.RegisterGame(GameName, "has_sword", hasSword)
	reg.RegisterGame(GameName, "can_lift_rocks", canLiftRocks)
	reg.RegisterGame(GameName, "can_lift_heavy_rocks", canLiftHeavyRocks)
	reg.RegisterGame(GameName, "can_use_bombs", canUseBombs)
	reg.RegisterGame(GameName, "can_melt_things", canMeltThings)
	reg.RegisterGame(GameName, "can_shoot_arrows", canShootArrows)
	reg.RegisterResolvedItemPolicy(GameName, resolvedItemPolicy)
}

// resolvedItemPolicy materializes every progressive tier at or below
// the owned count — checking a location holding "Progressive Sword"
// with two already owned adds both "Fighter Sword" and "Master Sword"
// to the resolved-item view, matching how the tracker UI lists
// individually named swords rather than a tier count.
func resolvedItemPolicy(mut helpers.ItemMutator, base string, count int) {
	for _, entry := range mut.Resolve(base) {
		if entry.Level <= count {
			mut.Add(entry.Name, 1)
		}
	}
}

func hasSword(view helpers.View, _ *staticdata.StaticData, _ ...any) (any, error) {
	return view.CountGroup("Sword") > 0, nil
}

func canLiftRocks(view helpers.View, _ *staticdata.StaticData, _ ...any) (any, error) {
	return view.Has("Power Glove") || view.Has("Titans Mitt"), nil
}

func canLiftHeavyRocks(view helpers.View, _ *staticdata.StaticData, _ ...any) (any, error) {
	return view.Has("Titans Mitt"), nil
}

// canUseBombs reports whether the player's current bomb capacity meets
// the required amount. Setting("bombless_start") removes the default
// starting supply, so a player who has never picked up a bomb upgrade
// cannot use bombs at all until they find one.
func canUseBombs(view helpers.View, _ *staticdata.StaticData, args ...any) (any, error) {
	required := 1
	if len(args) > 0 {
		if n, ok := toInt(args[0]); ok {
			required = n
		}
	}

	base := bombBaseWithStart
	if v, ok := view.Setting("bombless_start"); ok {
		if b, ok := v.(bool); ok && b {
			base = 0
		}
	}

	capacity := base + view.Count("Bomb Upgrade (+5)")*bombUpgradeCapacity
	return capacity >= required, nil
}

func canMeltThings(view helpers.View, _ *staticdata.StaticData, _ ...any) (any, error) {
	return view.Has("Fire Rod") || (view.Has("Bombos") && hasSwordBool(view)), nil
}

func canShootArrows(view helpers.View, _ *staticdata.StaticData, _ ...any) (any, error) {
	return view.Has("Bow") || view.Has("Silver Bow"), nil
}

func hasSwordBool(view helpers.View) bool {
	return view.CountGroup("Sword") > 0
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
