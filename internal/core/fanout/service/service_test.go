package fanoutapp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedline/internal/adapters/columnstore"
	"feedline/internal/adapters/memory"
	"feedline/internal/core/fanout"
	"feedline/internal/core/post"
	"feedline/internal/ports/store"
)

// flakyStore fails timeline-row puts for chosen owners a limited number of
// times, standing in for a store node that drops some of a fan-out batch.
type flakyStore struct {
	store.ColumnStore
	mu       sync.Mutex
	failures map[string]int
}

var errInjected = errors.New("injected put failure")

func (f *flakyStore) PutRow(ctx context.Context, table, rowKey, family, column string, version int64, value []byte) error {
	if table == columnstore.TableMoment && f.takeFailure(rowKey) {
		return errInjected
	}
	return f.ColumnStore.PutRow(ctx, table, rowKey, family, column, version, value)
}

func (f *flakyStore) takeFailure(rowKey string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[rowKey] > 0 {
		f.failures[rowKey]--
		return true
	}
	return false
}

type fixture struct {
	engine  *Engine
	graph   *columnstore.RelationRepository
	index   *columnstore.TimelineRepository
	content *columnstore.ContentRepository
	clock   int64
}

func newFixture(cs store.ColumnStore) *fixture {
	f := &fixture{
		graph: columnstore.NewRelationRepository(cs),
		index: columnstore.NewTimelineRepository(cs, 10),
	}
	f.content = columnstore.NewContentRepository(cs).WithClock(func() int64 {
		f.clock++
		return f.clock
	})
	f.engine = NewEngine(f.graph, f.index, f.content, 4, zap.NewNop())
	return f
}

func (f *fixture) ownerRefs(t *testing.T, ownerID string) map[string][]post.Ref {
	t.Helper()
	recent, err := f.index.ReadRecent(context.Background(), ownerID, 0)
	require.NoError(t, err)
	return recent
}

func TestDistributePostReachesAllFollowers(t *testing.T) {
	f := newFixture(memory.NewStore(columnstore.Schema(10)))
	ctx := context.Background()

	for _, follower := range []string{"0001", "0003", "0004"} {
		require.NoError(t, f.graph.Follow(ctx, follower, "0002"))
	}
	ref, err := f.content.Append(ctx, "0002", "hello")
	require.NoError(t, err)

	require.NoError(t, f.engine.DistributePost(ctx, ref))

	for _, follower := range []string{"0001", "0003", "0004"} {
		recent := f.ownerRefs(t, follower)
		require.Equal(t, []post.Ref{ref}, recent["0002"], "follower %s", follower)
	}
}

func TestDistributePostNoFollowers(t *testing.T) {
	f := newFixture(memory.NewStore(columnstore.Schema(10)))
	ctx := context.Background()

	ref, err := f.content.Append(ctx, "0002", "into the void")
	require.NoError(t, err)
	require.NoError(t, f.engine.DistributePost(ctx, ref))
}

func TestDistributePostIdempotentRedelivery(t *testing.T) {
	f := newFixture(memory.NewStore(columnstore.Schema(10)))
	ctx := context.Background()

	require.NoError(t, f.graph.Follow(ctx, "0001", "0002"))
	ref, err := f.content.Append(ctx, "0002", "hello")
	require.NoError(t, err)

	require.NoError(t, f.engine.DistributePost(ctx, ref))
	require.NoError(t, f.engine.DistributePost(ctx, ref))

	recent := f.ownerRefs(t, "0001")
	require.Equal(t, []post.Ref{ref}, recent["0002"], "redelivery must not duplicate the pointer")
}

func TestDistributePostPartialFailure(t *testing.T) {
	base := memory.NewStore(columnstore.Schema(10))
	flaky := &flakyStore{ColumnStore: base, failures: map[string]int{"0003": 1}}
	f := newFixture(flaky)
	ctx := context.Background()

	require.NoError(t, f.graph.Follow(ctx, "0001", "0002"))
	require.NoError(t, f.graph.Follow(ctx, "0003", "0002"))
	ref, err := f.content.Append(ctx, "0002", "hello")
	require.NoError(t, err)

	err = f.engine.DistributePost(ctx, ref)
	var partial *fanout.PartialError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, []string{"0003"}, partial.Remaining)
	require.ErrorIs(t, partial.Cause, errInjected)

	// The healthy follower was still served.
	require.Equal(t, []post.Ref{ref}, f.ownerRefs(t, "0001")["0002"])
	require.Empty(t, f.ownerRefs(t, "0003"))

	// A retry finishes the job.
	require.NoError(t, f.engine.DistributePost(ctx, ref))
	require.Equal(t, []post.Ref{ref}, f.ownerRefs(t, "0003")["0002"])
}

func TestBackfillOnFollowKeepsNewest(t *testing.T) {
	f := newFixture(memory.NewStore(columnstore.Schema(10)))
	ctx := context.Background()

	var refs []post.Ref
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		ref, err := f.content.Append(ctx, "0002", text)
		require.NoError(t, err)
		refs = append(refs, ref)
	}

	require.NoError(t, f.engine.BackfillOnFollow(ctx, "0001", "0002", 2))

	recent := f.ownerRefs(t, "0001")
	require.ElementsMatch(t, []post.Ref{refs[3], refs[4]}, recent["0002"],
		"only the newest posts within the limit are backfilled")
}

func TestBackfillOnFollowNoPosts(t *testing.T) {
	f := newFixture(memory.NewStore(columnstore.Schema(10)))
	require.NoError(t, f.engine.BackfillOnFollow(context.Background(), "0001", "0002", 10))
	require.Empty(t, f.ownerRefs(t, "0001"))
}

func TestPurgeOnUnfollow(t *testing.T) {
	f := newFixture(memory.NewStore(columnstore.Schema(10)))
	ctx := context.Background()

	require.NoError(t, f.graph.Follow(ctx, "0001", "0002"))
	ref, err := f.content.Append(ctx, "0002", "hello")
	require.NoError(t, err)
	require.NoError(t, f.engine.DistributePost(ctx, ref))

	require.NoError(t, f.engine.PurgeOnUnfollow(ctx, "0001", "0002"))
	require.Empty(t, f.ownerRefs(t, "0001"))
}
