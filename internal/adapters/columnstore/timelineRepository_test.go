package columnstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"feedline/internal/adapters/memory"
	"feedline/internal/core/post"
)

func TestTimelineInsertReadRecent(t *testing.T) {
	const depth = 3
	cs := memory.NewStore(Schema(depth))
	repo := NewTimelineRepository(cs, depth)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, "0001", "0002", post.Ref{AuthorID: "0002", CreatedAt: 10}))
	require.NoError(t, repo.Insert(ctx, "0001", "0002", post.Ref{AuthorID: "0002", CreatedAt: 20}))
	require.NoError(t, repo.Insert(ctx, "0001", "0003", post.Ref{AuthorID: "0003", CreatedAt: 15}))

	recent, err := repo.ReadRecent(ctx, "0001", 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, []post.Ref{
		{AuthorID: "0002", CreatedAt: 20},
		{AuthorID: "0002", CreatedAt: 10},
	}, recent["0002"])
	require.Equal(t, []post.Ref{{AuthorID: "0003", CreatedAt: 15}}, recent["0003"])
}

func TestTimelineInsertIdempotent(t *testing.T) {
	cs := memory.NewStore(Schema(3))
	repo := NewTimelineRepository(cs, 3)
	ctx := context.Background()

	ref := post.Ref{AuthorID: "0002", CreatedAt: 10}
	require.NoError(t, repo.Insert(ctx, "0001", "0002", ref))
	require.NoError(t, repo.Insert(ctx, "0001", "0002", ref))

	recent, err := repo.ReadRecent(ctx, "0001", 0)
	require.NoError(t, err)
	require.Equal(t, []post.Ref{ref}, recent["0002"])
}

func TestTimelineRetentionBound(t *testing.T) {
	const depth = 3
	cs := memory.NewStore(Schema(depth))
	repo := NewTimelineRepository(cs, depth)
	ctx := context.Background()

	for ts := int64(1); ts <= 5; ts++ {
		require.NoError(t, repo.Insert(ctx, "0001", "0002", post.Ref{AuthorID: "0002", CreatedAt: ts}))
	}

	recent, err := repo.ReadRecent(ctx, "0001", 0)
	require.NoError(t, err)
	require.Equal(t, []post.Ref{
		{AuthorID: "0002", CreatedAt: 5},
		{AuthorID: "0002", CreatedAt: 4},
		{AuthorID: "0002", CreatedAt: 3},
	}, recent["0002"], "only the newest depth pointers survive")

	// Read-side cap below the stored depth.
	recent, err = repo.ReadRecent(ctx, "0001", 1)
	require.NoError(t, err)
	require.Equal(t, []post.Ref{{AuthorID: "0002", CreatedAt: 5}}, recent["0002"])
}

func TestTimelinePurge(t *testing.T) {
	cs := memory.NewStore(Schema(3))
	repo := NewTimelineRepository(cs, 3)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, "0001", "0002", post.Ref{AuthorID: "0002", CreatedAt: 10}))
	require.NoError(t, repo.Insert(ctx, "0001", "0003", post.Ref{AuthorID: "0003", CreatedAt: 11}))

	require.NoError(t, repo.Purge(ctx, "0001", "0002"))
	// Purging an author who was never followed is harmless.
	require.NoError(t, repo.Purge(ctx, "0001", "0009"))

	recent, err := repo.ReadRecent(ctx, "0001", 0)
	require.NoError(t, err)
	require.NotContains(t, recent, "0002")
	require.Contains(t, recent, "0003")
}
