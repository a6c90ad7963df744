package alttp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archipelago-tracker/core/internal/domain"
	"github.com/archipelago-tracker/core/internal/helpers"
)

type stubView struct {
	items    map[string]int
	groups   map[string]int
	settings map[string]any
}

func (v *stubView) Has(item string) bool        { return v.items[item] > 0 }
func (v *stubView) Count(item string) int       { return v.items[item] }
func (v *stubView) CountGroup(group string) int { return v.groups[group] }
func (v *stubView) HasFlag(string) bool         { return false }
func (v *stubView) HasEvent(string) bool        { return false }
func (v *stubView) Setting(name string) (any, bool) {
	val, ok := v.settings[name]
	return val, ok
}
func (v *stubView) CanReach(string, string, int) bool { return false }
func (v *stubView) Player() int                       { return 1 }

func newStubView() *stubView {
	return &stubView{items: map[string]int{}, groups: map[string]int{}, settings: map[string]any{}}
}

func newRegistry() *helpers.Registry {
	reg := helpers.New(GameName)
	RegisterInto(reg)
	return reg
}

func TestHasSwordChecksSwordGroup(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("has_sword")

	view := newStubView()
	got, _ := fn(view, nil)
	require.Equal(t, false, got, "has_sword must be false with no sword held")
	view.groups["Sword"] = 1
	got, _ = fn(view, nil)
	require.Equal(t, true, got, "has_sword must be true once any sword tier is held")
}

func TestCanLiftRocksEitherGlove(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_lift_rocks")

	view := newStubView()
	got, _ := fn(view, nil)
	require.Equal(t, false, got, "can_lift_rocks must be false with no glove")
	view.items["Power Glove"] = 1
	got, _ = fn(view, nil)
	require.Equal(t, true, got, "can_lift_rocks must be true with Power Glove")
}

func TestCanLiftHeavyRocksRequiresTitansMitt(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_lift_heavy_rocks")

	view := newStubView()
	view.items["Power Glove"] = 1
	got, _ := fn(view, nil)
	require.Equal(t, false, got, "can_lift_heavy_rocks must require Titans Mitt specifically")
	view.items["Titans Mitt"] = 1
	got, _ = fn(view, nil)
	require.Equal(t, true, got, "can_lift_heavy_rocks must be true with Titans Mitt")
}

func TestCanUseBombsDefaultCapacityWithoutBomblessStart(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_use_bombs")

	view := newStubView()
	got, _ := fn(view, nil)
	require.Equal(t, true, got, "can_use_bombs must be true by default (base capacity 10, required 1)")
}

func TestCanUseBombsRespectsBomblessStartSetting(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_use_bombs")

	view := newStubView()
	view.settings["bombless_start"] = true
	got, _ := fn(view, nil)
	require.Equal(t, false, got, "can_use_bombs must be false under bombless_start with no upgrades")

	view.items["Bomb Upgrade (+5)"] = 1
	got, _ = fn(view, nil)
	require.Equal(t, true, got, "can_use_bombs must become true once a bomb upgrade is held, even under bombless_start")
}

func TestCanUseBombsHonorsExplicitRequiredCount(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_use_bombs")

	view := newStubView()
	got, _ := fn(view, nil, 11)
	require.Equal(t, false, got, "can_use_bombs(11) must be false with only the default 10 capacity")
	view.items["Bomb Upgrade (+5)"] = 1
	got, _ = fn(view, nil, 11)
	require.Equal(t, true, got, "can_use_bombs(11) must be true once capacity reaches 15")
}

func TestCanMeltThingsFireRodOrBombosWithSword(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_melt_things")

	view := newStubView()
	got, _ := fn(view, nil)
	require.Equal(t, false, got, "can_melt_things must be false with nothing held")

	view.items["Bombos"] = 1
	got, _ = fn(view, nil)
	require.Equal(t, false, got, "Bombos alone must not melt things without a sword")

	view.groups["Sword"] = 1
	got, _ = fn(view, nil)
	require.Equal(t, true, got, "Bombos with a sword must melt things")

	view2 := newStubView()
	view2.items["Fire Rod"] = 1
	got, _ = fn(view2, nil)
	require.Equal(t, true, got, "Fire Rod alone must melt things")
}

func TestCanShootArrowsEitherBow(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("can_shoot_arrows")

	view := newStubView()
	got, _ := fn(view, nil)
	require.Equal(t, false, got, "can_shoot_arrows must be false with no bow")
	view.items["Silver Bow"] = 1
	got, _ = fn(view, nil)
	require.Equal(t, true, got, "can_shoot_arrows must be true with Silver Bow")
}

type fakeMutator struct {
	added   map[string]int
	entries []domain.ProgressionEntry
}

func (m *fakeMutator) Add(name string, n int) { m.added[name] += n }
func (m *fakeMutator) Resolve(string) []domain.ProgressionEntry {
	return m.entries
}

func TestResolvedItemPolicyMaterializesTiersAtOrBelowCount(t *testing.T) {
	reg := newRegistry()
	policy, ok := reg.ResolvedItemPolicyFor()
	require.True(t, ok, "alttp resolved item policy must be registered")

	mut := &fakeMutator{
		added: map[string]int{},
		entries: []domain.ProgressionEntry{
			{Name: "Fighter Sword", Level: 1},
			{Name: "Master Sword", Level: 2},
			{Name: "Tempered Sword", Level: 3},
		},
	}
	policy(mut, "Progressive Sword", 2)

	require.Equal(t, 1, mut.added["Fighter Sword"])
	require.Equal(t, 1, mut.added["Master Sword"])
	_, ok = mut.added["Tempered Sword"]
	require.False(t, ok, "Tempered Sword is above the owned count and must not be materialized")
}
