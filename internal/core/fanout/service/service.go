package fanoutapp

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"feedline/internal/core/fanout"
	"feedline/internal/core/post"
	contentPort "feedline/internal/ports/content"
	relationPort "feedline/internal/ports/relation"
	timelinePort "feedline/internal/ports/timeline"
)

// Engine propagates a single primary write (a post, or a follow's backfill)
// into many timeline rows. Per-follower and per-post inserts are dispatched
// on a bounded concurrent group; each is an independent idempotent put, so
// partial completion is a valid state that a retry finishes rather than
// rolls back.
type Engine struct {
	Graph   relationPort.RelationGraph
	Index   timelinePort.TimelineIndex
	Content contentPort.ContentStore
	Workers int
	Logger  *zap.Logger
}

func NewEngine(
	graph relationPort.RelationGraph,
	index timelinePort.TimelineIndex,
	content contentPort.ContentStore,
	workers int,
	logger *zap.Logger,
) *Engine {
	if workers <= 0 {
		workers = 8
	}
	return &Engine{
		Graph:   graph,
		Index:   index,
		Content: content,
		Workers: workers,
		Logger:  logger,
	}
}

// DistributePost inserts a pointer to ref into the timeline of every
// follower the author has right now. One follower's failure never aborts
// the others; the not-yet-updated followers come back in a PartialError so
// the caller can retry just them.
func (e *Engine) DistributePost(ctx context.Context, ref post.Ref) error {
	followers, err := e.Graph.Followers(ctx, ref.AuthorID)
	if err != nil {
		return err
	}
	if len(followers) == 0 {
		return nil
	}

	var (
		mu        sync.Mutex
		remaining []string
		firstErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for _, follower := range followers {
		follower := follower
		g.Go(func() error {
			// A cancelled batch defers the rest to the retry pass
			// instead of blocking on a dead context.
			err := gctx.Err()
			if err == nil {
				err = e.Index.Insert(gctx, follower, ref.AuthorID, ref)
			}
			if err != nil {
				mu.Lock()
				remaining = append(remaining, follower)
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				e.Logger.Warn("timeline insert failed",
					zap.String("owner", follower),
					zap.String("author", ref.AuthorID),
					zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()

	if len(remaining) > 0 {
		return &fanout.PartialError{Remaining: remaining, Cause: firstErr}
	}
	return nil
}

// BackfillOnFollow copies the followee's most recent limit posts into the
// follower's timeline window. Callers invoke it only after the follow edge
// is durable: a crash in between leaves the follower with a thin window
// that self-heals on the followee's next post.
func (e *Engine) BackfillOnFollow(ctx context.Context, followerID, followeeID string, limit int) error {
	refs, err := e.recentRefs(ctx, followeeID, limit)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		failed   int
		firstErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			err := gctx.Err()
			if err == nil {
				err = e.Index.Insert(gctx, followerID, followeeID, ref)
			}
			if err != nil {
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if failed > 0 {
		// Re-running the whole backfill is cheap and idempotent, so a
		// partial backfill is reported as a plain retryable error.
		return firstErr
	}
	return nil
}

// recentRefs walks the author's posts ascending and keeps the tail.
func (e *Engine) recentRefs(ctx context.Context, authorID string, limit int) ([]post.Ref, error) {
	iter := e.Content.ScanByAuthor(ctx, authorID, nil)
	defer iter.Release()

	var refs []post.Ref
	for iter.Next() {
		refs = append(refs, iter.Post().Ref())
		if limit > 0 && len(refs) > limit {
			refs = refs[1:]
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return refs, nil
}

// PurgeOnUnfollow drops the followee's pointers from the follower's
// timeline. Runs only after the edge removal is durable, so a crash leaves
// stale-but-revocable pointers rather than a missing edge.
func (e *Engine) PurgeOnUnfollow(ctx context.Context, followerID, followeeID string) error {
	return e.Index.Purge(ctx, followerID, followeeID)
}
