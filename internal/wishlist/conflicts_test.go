package wishlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTitleConflicts(t *testing.T) {
	records := []Record{
		rec("1", "Portal 2", "u1"),
		rec("1", "Portal 2", "u2"),
		rec("1", "Portal II", "u3"),
		rec("1", "Portal II", "u4"),
		rec("2", "Factorio", "u1"),
	}

	conflicts := TitleConflicts(records)
	require.Len(t, conflicts, 1)
	require.Equal(t, "1", conflicts[0].ItemID)
	require.Equal(t, "Portal 2", conflicts[0].Kept)
	require.Equal(t, "Portal II", conflicts[0].Other)
	require.Greater(t, conflicts[0].Similarity, 0.8)
	require.Less(t, conflicts[0].Similarity, 1.0)
}

func TestTitleConflictsNone(t *testing.T) {
	require.Empty(t, TitleConflicts(sampleRecords))
	require.Empty(t, TitleConflicts(nil))
}
