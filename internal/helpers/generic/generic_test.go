package generic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archipelago-tracker/core/internal/helpers"
)

type stubView struct {
	items       map[string]int
	groupCounts map[string]int
	canReachFn  func(name, kind string, player int) bool
	player      int
}

func (v *stubView) Has(item string) bool  { return v.items[item] > 0 }
func (v *stubView) Count(item string) int { return v.items[item] }
func (v *stubView) CountGroup(group string) int {
	return v.groupCounts[group]
}
func (v *stubView) HasFlag(string) bool        { return false }
func (v *stubView) HasEvent(string) bool       { return false }
func (v *stubView) Setting(string) (any, bool) { return nil, false }
func (v *stubView) CanReach(name, kind string, player int) bool {
	if v.canReachFn != nil {
		return v.canReachFn(name, kind, player)
	}
	return false
}
func (v *stubView) Player() int { return v.player }

func newRegistry() *helpers.Registry {
	reg := helpers.New("")
	RegisterInto(reg)
	return reg
}

func TestCanReachDefaultsToRegionKindAndViewPlayer(t *testing.T) {
	reg := newRegistry()
	var gotName, gotKind string
	var gotPlayer int
	view := &stubView{player: 3, canReachFn: func(name, kind string, player int) bool {
		gotName, gotKind, gotPlayer = name, kind, player
		return true
	}}

	fn, ok := reg.Lookup("can_reach")
	require.True(t, ok, "can_reach must be registered")
	got, err := fn(view, nil, "DarkWorld")
	require.NoError(t, err)
	require.Equal(t, true, got)
	require.Equal(t, "DarkWorld", gotName)
	require.Equal(t, "Region", gotKind)
	require.Equal(t, 3, gotPlayer)
}

func TestCanReachHonorsExplicitKindAndPlayer(t *testing.T) {
	reg := newRegistry()
	var gotKind string
	var gotPlayer int
	view := &stubView{player: 1, canReachFn: func(name, kind string, player int) bool {
		gotKind, gotPlayer = kind, player
		return false
	}}

	fn, _ := reg.Lookup("can_reach")
	fn(view, nil, "CaveChest", "Location", 2)
	require.Equal(t, "Location", gotKind)
	require.Equal(t, 2, gotPlayer)
}

func TestCanReachNoArgsReturnsFalse(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_reach")
	got, err := fn(&stubView{}, nil)
	require.NoError(t, err)
	require.Equal(t, false, got)
}

func TestFormListUnlockTrueOnlyWhenEveryItemHeld(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("form_list_unlock")
	view := &stubView{items: map[string]int{"Red Medallion": 1}}

	got, err := fn(view, nil, []any{"Red Medallion", "Blue Medallion"})
	require.NoError(t, err)
	require.Equal(t, false, got, "form_list_unlock must be false with one item missing")

	view.items["Blue Medallion"] = 1
	got, err = fn(view, nil, []any{"Red Medallion", "Blue Medallion"})
	require.NoError(t, err)
	require.Equal(t, true, got, "form_list_unlock must be true once every item held")
}

func TestFormListUnlockErrorsOnMissingOrWrongShapedArg(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("form_list_unlock")

	_, err := fn(&stubView{}, nil)
	require.Error(t, err, "form_list_unlock with no args must error")
	_, err = fn(&stubView{}, nil, "not-a-list")
	require.Error(t, err, "form_list_unlock with a non-list arg must error")
}

func TestCountGroupDelegatesToView(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("count_group")
	view := &stubView{groupCounts: map[string]int{"Sword": 2}}

	got, err := fn(view, nil, "Sword")
	require.NoError(t, err)
	require.Equal(t, 2, got)
}
