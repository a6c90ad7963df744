package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archipelago-tracker/core/internal/domain"
)

func populated() *State {
	s := New()
	s.SetFlag("visitedCave", true)
	s.ProcessEventItem("DefeatedBoss")
	s.SetSetting("difficulty", "hard")
	s.MarkChecked("ChestA")
	s.MarkChecked("ChestB")
	s.SetRegionReachability(map[string]domain.ReachState{
		"Menu": domain.Reachable,
		"Cave": domain.Unreachable,
	})
	return s
}

func TestCloneIsIndependentCopy(t *testing.T) {
	s := populated()
	clone := s.Clone()

	require.True(t, clone.HasFlag("visitedCave"), "clone must carry over flags")
	require.True(t, clone.HasEvent("DefeatedBoss"), "clone must carry over events")
	v, ok := clone.Setting("difficulty")
	require.True(t, ok)
	require.Equal(t, "hard", v)
	require.Equal(t, []string{"ChestA", "ChestB"}, clone.CheckedLocations())
	require.Equal(t, domain.Reachable, clone.IsRegionReachable("Menu"), "clone must carry over region reachability")

	// Mutate the clone; the original must be unaffected.
	clone.SetFlag("visitedCave", false)
	clone.ClearEvent("DefeatedBoss")
	clone.MarkChecked("ChestC")
	clone.SetSetting("difficulty", "easy")

	require.True(t, s.HasFlag("visitedCave"), "mutating the clone must not affect the original flags")
	require.True(t, s.HasEvent("DefeatedBoss"), "mutating the clone must not affect the original events")
	require.Len(t, s.CheckedLocations(), 2, "mutating the clone must not affect the original checked set")
	v, _ = s.Setting("difficulty")
	require.Equal(t, "hard", v, "mutating the clone must not affect the original settings")
}

func TestMarkCheckedIsIdempotentAndOrdered(t *testing.T) {
	s := New()
	require.True(t, s.MarkChecked("A"), "first MarkChecked(A) must report newly added")
	require.False(t, s.MarkChecked("A"), "second MarkChecked(A) must report already present")
	s.MarkChecked("B")

	require.Equal(t, []string{"A", "B"}, s.CheckedLocations())
}

func TestUnmarkCheckedRemovesFromOrder(t *testing.T) {
	s := New()
	s.MarkChecked("A")
	s.MarkChecked("B")
	s.MarkChecked("C")

	s.UnmarkChecked("B")

	require.False(t, s.IsLocationChecked("B"), "B must no longer be checked")
	require.Equal(t, []string{"A", "C"}, s.CheckedLocations())
}

func TestReplaceCheckedDeduplicatesAndPreservesOrder(t *testing.T) {
	s := New()
	s.MarkChecked("Stale")

	s.ReplaceChecked([]string{"A", "B", "A", "C"})

	require.False(t, s.IsLocationChecked("Stale"), "ReplaceChecked must discard the previous checked set")
	require.Equal(t, []string{"A", "B", "C"}, s.CheckedLocations())
}

func TestClearFlagRemovesEntirely(t *testing.T) {
	s := New()
	s.SetFlag("seenIntro", true)
	s.ClearFlag("seenIntro")

	require.False(t, s.HasFlag("seenIntro"), "ClearFlag must make HasFlag report false")
}

func TestResetClearsEventsAndChecksButKeepsSettings(t *testing.T) {
	s := populated()

	s.Reset()

	require.False(t, s.HasFlag("visitedCave"), "Reset must clear flags")
	require.False(t, s.HasEvent("DefeatedBoss"), "Reset must clear events")
	require.Empty(t, s.CheckedLocations(), "Reset must clear checked locations")
	v, ok := s.Setting("difficulty")
	require.True(t, ok, "Reset must preserve settings")
	require.Equal(t, "hard", v)
	require.Equal(t, domain.Unreachable, s.IsRegionReachable("Menu"), "Reset must clear region reachability")
}

func TestRegionReachabilitySnapshotStringifiesStates(t *testing.T) {
	s := New()
	s.SetRegionReachability(map[string]domain.ReachState{
		"Menu": domain.Reachable,
		"Cave": domain.Checked,
		"Pit":  domain.Unreachable,
	})

	snap := s.RegionReachabilitySnapshot()
	require.Equal(t, "reachable", snap["Menu"])
	require.Equal(t, "checked", snap["Cave"])
	require.Equal(t, "unreachable", snap["Pit"])
}
