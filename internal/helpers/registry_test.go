package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archipelago-tracker/core/internal/staticdata"
)

type stubView struct {
	items    map[string]int
	flags    map[string]bool
	events   map[string]bool
	settings map[string]any
	player   int
}

func (v *stubView) Has(item string) bool       { return v.items[item] > 0 }
func (v *stubView) Count(item string) int      { return v.items[item] }
func (v *stubView) CountGroup(group string) int { return 0 }
func (v *stubView) HasFlag(name string) bool    { return v.flags[name] }
func (v *stubView) HasEvent(name string) bool   { return v.events[name] }
func (v *stubView) Setting(name string) (any, bool) {
	val, ok := v.settings[name]
	return val, ok
}
func (v *stubView) CanReach(name, kind string, player int) bool { return false }
func (v *stubView) Player() int                                 { return v.player }

func newStubView() *stubView {
	return &stubView{
		items:    map[string]int{},
		flags:    map[string]bool{},
		events:   map[string]bool{},
		settings: map[string]any{},
	}
}

func TestLookupPrefersGameOverrideOverGeneric(t *testing.T) {
	r := New("alttp")
	r.RegisterGeneric("has_sword", func(view View, static *staticdata.StaticData, args ...any) (any, error) {
		return "generic", nil
	})
	r.RegisterGame("alttp", "has_sword", func(view View, static *staticdata.StaticData, args ...any) (any, error) {
		return "alttp", nil
	})

	fn, ok := r.Lookup("has_sword")
	require.True(t, ok, "Lookup(has_sword) must succeed")
	got, err := fn(newStubView(), nil)
	require.NoError(t, err)
	require.Equal(t, "alttp", got, "want alttp override")
}

func TestLookupFallsBackToGenericWhenNoGameOverride(t *testing.T) {
	r := New("kh2")
	r.RegisterGeneric("always_true", func(view View, static *staticdata.StaticData, args ...any) (any, error) {
		return true, nil
	})

	fn, ok := r.Lookup("always_true")
	require.True(t, ok, "Lookup(always_true) must succeed via the generic fallback")
	got, _ := fn(newStubView(), nil)
	require.Equal(t, true, got)
}

func TestLookupUnknownNameFails(t *testing.T) {
	r := New("alttp")
	_, ok := r.Lookup("totally_unknown_helper")
	require.False(t, ok, "Lookup must fail for a name nothing registered")
}

func TestLookupRecognisesBossRulesConvention(t *testing.T) {
	r := New("alttp")
	fn, ok := r.Lookup("get_ganon_rules")
	require.True(t, ok, "get_*_rules names must resolve even when never registered")
	got, err := fn(newStubView(), nil)
	require.NoError(t, err)
	require.Equal(t, true, got)
}

func TestLookupDoesNotTreatArbitraryGetPrefixAsBossRules(t *testing.T) {
	r := New("alttp")
	_, ok := r.Lookup("get_item_count")
	require.False(t, ok, "get_item_count does not match the get_*_rules convention and must not resolve")
}

func TestCallInvokesResolvedHelperWithArgs(t *testing.T) {
	r := New("alttp")
	r.RegisterGeneric("echo", func(view View, static *staticdata.StaticData, args ...any) (any, error) {
		return args[0], nil
	})

	got, ok, err := r.Call(0, "echo", newStubView(), nil, "hello")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", got)
}

func TestCallUnknownHelperReturnsFalseNoError(t *testing.T) {
	r := New("alttp")
	_, ok, err := r.Call(0, "nonexistent", newStubView(), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCallEnforcesRecursionDepthGuard(t *testing.T) {
	r := New("alttp")
	r.RegisterGeneric("deep", func(view View, static *staticdata.StaticData, args ...any) (any, error) {
		return nil, nil
	})

	_, _, err := r.Call(maxRecursionDepth+1, "deep", newStubView(), nil)
	require.True(t, errors.Is(err, ErrTooDeep), "Call beyond max depth must return ErrTooDeep, got %v", err)
}

func TestResolvedItemPolicyForReflectsActiveGame(t *testing.T) {
	r := New("alttp")
	called := false
	r.RegisterResolvedItemPolicy("alttp", func(mut ItemMutator, base string, count int) {
		called = true
	})

	policy, ok := r.ResolvedItemPolicyFor()
	require.True(t, ok, "ResolvedItemPolicyFor must find the alttp policy")
	policy(nil, "Sword", 1)
	require.True(t, called, "the returned policy must be the one registered for the active game")
}

func TestResolvedItemPolicyForAbsentWhenGameChanges(t *testing.T) {
	r := New("alttp")
	r.RegisterResolvedItemPolicy("alttp", func(mut ItemMutator, base string, count int) {})
	r.SetGame("kh2")

	_, ok := r.ResolvedItemPolicyFor()
	require.False(t, ok, "ResolvedItemPolicyFor must not find an alttp-only policy after SetGame(kh2)")
}
