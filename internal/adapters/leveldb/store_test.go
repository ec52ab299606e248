package leveldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"feedline/internal/ports/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), store.Schema{"t": {"info": 3}})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRow(ctx, "t", "row", "info", "col", 5, []byte("v5")))
	require.NoError(t, s.PutRow(ctx, "t", "row", "info", "col", 9, []byte("v9")))

	cells, err := s.GetRow(ctx, "t", "row", "info", 0)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	require.Equal(t, int64(9), cells[0].Version)
	require.Equal(t, "v9", string(cells[0].Value))
	require.Equal(t, int64(5), cells[1].Version)

	cells, err = s.GetRow(ctx, "t", "missing", "info", 0)
	require.NoError(t, err)
	require.Empty(t, cells)
}

func TestWriteTimeRetention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for ts := int64(1); ts <= 6; ts++ {
		require.NoError(t, s.PutRow(ctx, "t", "row", "info", "col", ts, nil))
	}

	cells, err := s.GetRow(ctx, "t", "row", "info", 0)
	require.NoError(t, err)
	require.Len(t, cells, 3)
	require.Equal(t, int64(6), cells[0].Version)
	require.Equal(t, int64(4), cells[2].Version)
}

func TestDeleteColumnDropsAllVersions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRow(ctx, "t", "row", "info", "a", 1, nil))
	require.NoError(t, s.PutRow(ctx, "t", "row", "info", "a", 2, nil))
	require.NoError(t, s.PutRow(ctx, "t", "row", "info", "b", 1, nil))

	require.NoError(t, s.DeleteColumn(ctx, "t", "row", "info", "a"))
	require.NoError(t, s.DeleteColumn(ctx, "t", "row", "info", "a"))

	cells, err := s.GetRow(ctx, "t", "row", "info", 0)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	require.Equal(t, "b", cells[0].Column)
}

func TestScanPrefixGroupsRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRow(ctx, "t", "a#1", "info", "x", 1, []byte("1")))
	require.NoError(t, s.PutRow(ctx, "t", "a#1", "info", "y", 1, []byte("2")))
	require.NoError(t, s.PutRow(ctx, "t", "a#2", "info", "x", 1, []byte("3")))
	require.NoError(t, s.PutRow(ctx, "t", "b#1", "info", "x", 1, []byte("4")))

	iter := s.ScanPrefix(ctx, "t", "a#", "")
	defer iter.Release()

	require.True(t, iter.Next())
	require.Equal(t, "a#1", iter.Row().Key)
	require.Len(t, iter.Row().Cells, 2)

	require.True(t, iter.Next())
	require.Equal(t, "a#2", iter.Row().Key)
	require.Len(t, iter.Row().Cells, 1)

	require.False(t, iter.Next())
	require.NoError(t, iter.Error())
}

func TestScanPrefixResume(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"a#1", "a#2", "a#3"} {
		require.NoError(t, s.PutRow(ctx, "t", key, "info", "x", 1, nil))
	}

	var keys []string
	iter := s.ScanPrefix(ctx, "t", "a#", "a#2")
	for iter.Next() {
		keys = append(keys, iter.Row().Key)
	}
	iter.Release()
	require.NoError(t, iter.Error())
	require.Equal(t, []string{"a#2", "a#3"}, keys)
}

func TestScanPrefixExclusiveCursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"a#1", "a#2", "a#3"} {
		require.NoError(t, s.PutRow(ctx, "t", key, "info", "x", 1, nil))
	}

	// A NUL-suffixed cursor resumes strictly after the cursor row; the
	// cursor row itself must not come back.
	var keys []string
	iter := s.ScanPrefix(ctx, "t", "a#", "a#2\x00")
	for iter.Next() {
		keys = append(keys, iter.Row().Key)
	}
	iter.Release()
	require.NoError(t, iter.Error())
	require.Equal(t, []string{"a#3"}, keys)
}
