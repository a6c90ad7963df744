package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewItemDeduplicatesGroups(t *testing.T) {
	item := NewItem("Sword", []string{"weapons", "weapons", "melee"}, false, true, false)

	require.True(t, item.InGroup("weapons"))
	require.True(t, item.InGroup("melee"))
	require.Len(t, item.Groups, 2, "want 2 groups after deduplication")
	require.True(t, item.Advancement, "Advancement must be carried through from NewItem")
}

func TestItemInGroupFalseForUnknownGroup(t *testing.T) {
	item := NewItem("Shield", nil, false, false, false)
	require.False(t, item.InGroup("weapons"), "an item with no groups must not match any group")
}

func TestProgressionMappingResolvedAtReturnsRungsUpToCount(t *testing.T) {
	pm := ProgressionMapping{
		"Sword": {
			{Name: "ProgressiveSword1", Level: 1},
			{Name: "ProgressiveSword2", Level: 2, Provides: []string{"MasterSword"}},
			{Name: "ProgressiveSword3", Level: 3},
		},
	}

	got := pm.ResolvedAt("Sword", 2)
	require.Len(t, got, 2)
	require.Equal(t, "ProgressiveSword1", got[0].Name)
	require.Equal(t, "ProgressiveSword2", got[1].Name)
}

func TestProgressionMappingResolvedAtUnknownBaseReturnsEmpty(t *testing.T) {
	pm := ProgressionMapping{}
	got := pm.ResolvedAt("Nothing", 5)
	require.Empty(t, got)
}
