// Package generic holds helpers available to every game, registered
// before any per-game override.
package generic

import (
	"fmt"

	"github.com/archipelago-tracker/core/internal/helpers"
	"github.com/archipelago-tracker/core/internal/staticdata"
)

// RegisterInto adds the generic helper pack to reg.
func RegisterInto(reg *helpers.Registry) {
	reg.RegisterGeneric("can_reach", canReach)
	reg.RegisterGeneric("form_list_unlock", formListUnlock)
	reg.RegisterGeneric("count_group", countGroup)
}

// canReach mirrors the state_method/function_call can_reach dispatch so
// rule ASTs that route through a generic "helper(can_reach, ...)" node
// (rather than the dedicated state_method/function_call forms) resolve
// identically.
func canReach(view helpers.View, _ *staticdata.StaticData, args ...any) (any, error) {
	if len(args) == 0 {
		return false, nil
	}
	name, _ := args[0].(string)
	kind := "Region"
	if len(args) > 1 {
		if k, ok := args[1].(string); ok {
			kind = k
		}
	}
	player := view.Player()
	if len(args) > 2 {
		if p, ok := args[2].(int); ok {
			player = p
		}
	}
	return view.CanReach(name, kind, player), nil
}

// formListUnlock checks whether owning every item in a list unlocks a
// gate — a common randomizer pattern (e.g. "all N medallions").
func formListUnlock(view helpers.View, _ *staticdata.StaticData, args ...any) (any, error) {
	if len(args) == 0 {
		return false, fmt.Errorf("form_list_unlock: expected at least one arg")
	}
	items, ok := args[0].([]any)
	if !ok {
		return false, fmt.Errorf("form_list_unlock: expected a list argument")
	}
	for _, it := range items {
		name, ok := it.(string)
		if !ok || !view.Has(name) {
			return false, nil
		}
	}
	return true, nil
}

// countGroup exposes Inventory.CountGroup as a callable helper for
// rules that dispatch it via `helper(count_group, ...)` rather than the
// dedicated group_check node.
func countGroup(view helpers.View, _ *staticdata.StaticData, args ...any) (any, error) {
	if len(args) == 0 {
		return 0, nil
	}
	group, _ := args[0].(string)
	return view.CountGroup(group), nil
}
