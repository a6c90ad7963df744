// Package kh2 registers the Kingdom Hearts II helper overrides. This
// game's rules lean on aggregate counting across item families
// (form levels, summon levels) rather than single-item gates, so its
// helpers take list/dict-shaped arguments instead of a bare item name.
package kh2

import (
	"github.com/archipelago-tracker/core/internal/helpers"
	"github.com/archipelago-tracker/core/internal/staticdata"
)

// GameName is the rules document game_name this pack overrides.
const GameName = "kh2"

// RegisterInto adds the kh2 helper pack to reg, keyed under GameName.
func RegisterInto(reg *helpers.Registry) {
	reg.RegisterGame(GameName, "kh2_dict_count", dictCount)
	reg.RegisterGame(GameName, "kh2_list_any_sum", listAnySum)
	reg.RegisterResolvedItemPolicy(GameName, resolvedItemPolicy)
}

// resolvedItemPolicy is a no-op: this game's progression is aggregate
// sums across item families (form/summon levels), not named tiers, so
// there is nothing distinct to materialize beyond the direct item
// count already displayed.
func resolvedItemPolicy(helpers.ItemMutator, string, int) {}

// dictCount takes a map of item name to required count and reports
// whether every entry is individually satisfied.
func dictCount(view helpers.View, _ *staticdata.StaticData, args ...any) (any, error) {
	if len(args) == 0 {
		return false, nil
	}
	required, ok := args[0].(map[string]any)
	if !ok {
		return false, nil
	}
	for item, want := range required {
		n, ok := toInt(want)
		if !ok {
			continue
		}
		if view.Count(item) < n {
			return false, nil
		}
	}
	return true, nil
}

// listAnySum takes a list of item names and a required total, and
// reports whether the combined count across every listed item meets
// that total — used for "N levels across any of these forms" gates.
func listAnySum(view helpers.View, _ *staticdata.StaticData, args ...any) (any, error) {
	if len(args) < 2 {
		return false, nil
	}
	items, ok := args[0].([]any)
	if !ok {
		return false, nil
	}
	required, ok := toInt(args[1])
	if !ok {
		return false, nil
	}
	total := 0
	for _, it := range items {
		name, ok := it.(string)
		if !ok {
			continue
		}
		total += view.Count(name)
	}
	return total >= required, nil
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
