package kh2

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archipelago-tracker/core/internal/helpers"
)

type stubView struct {
	items map[string]int
}

func (v *stubView) Has(item string) bool              { return v.items[item] > 0 }
func (v *stubView) Count(item string) int             { return v.items[item] }
func (v *stubView) CountGroup(string) int             { return 0 }
func (v *stubView) HasFlag(string) bool               { return false }
func (v *stubView) HasEvent(string) bool              { return false }
func (v *stubView) Setting(string) (any, bool)        { return nil, false }
func (v *stubView) CanReach(string, string, int) bool { return false }
func (v *stubView) Player() int                       { return 1 }

func newRegistry() *helpers.Registry {
	reg := helpers.New(GameName)
	RegisterInto(reg)
	return reg
}

func TestDictCountRequiresEveryEntrySatisfied(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("kh2_dict_count")

	view := &stubView{items: map[string]int{"Valor Form": 2, "Wisdom Form": 1}}
	required := map[string]any{"Valor Form": 2, "Wisdom Form": 2}

	got, err := fn(view, nil, required)
	require.NoError(t, err)
	require.Equal(t, false, got, "want false (Wisdom Form short)")

	view.items["Wisdom Form"] = 2
	got, err = fn(view, nil, required)
	require.NoError(t, err)
	require.Equal(t, true, got, "want true once every entry satisfied")
}

func TestDictCountNoArgsReturnsFalse(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("kh2_dict_count")
	got, err := fn(&stubView{items: map[string]int{}}, nil)
	require.NoError(t, err)
	require.Equal(t, false, got)
}

func TestListAnySumAggregatesAcrossItems(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("kh2_list_any_sum")

	view := &stubView{items: map[string]int{"Valor Form": 2, "Wisdom Form": 1, "Master Form": 0}}
	items := []any{"Valor Form", "Wisdom Form", "Master Form"}

	got, err := fn(view, nil, items, 4)
	require.NoError(t, err)
	require.Equal(t, false, got, "want false (total 3)")

	got, err = fn(view, nil, items, 3)
	require.NoError(t, err)
	require.Equal(t, true, got, "want true (total meets 3)")
}

func TestListAnySumRequiresListAndCount(t *testing.T) {
	reg := newRegistry()
	fn, _ := reg.Lookup("kh2_list_any_sum")

	view := &stubView{items: map[string]int{}}
	got, err := fn(view, nil, []any{"Valor Form"})
	require.NoError(t, err)
	require.Equal(t, false, got)
}

func TestResolvedItemPolicyIsNoOp(t *testing.T) {
	reg := newRegistry()
	policy, ok := reg.ResolvedItemPolicyFor()
	require.True(t, ok, "kh2 resolved item policy must be registered, even as a no-op")
	policy(nil, "Valor Form", 2)
}
