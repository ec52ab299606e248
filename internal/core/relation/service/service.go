package relationapp

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"feedline/internal/core/fanout"
	fanoutPort "feedline/internal/ports/fanout"
	relationPort "feedline/internal/ports/relation"
)

var ErrSelfFollow = errors.New("relation: cannot follow yourself")

// RelationService mutates the social graph and schedules the timeline
// reconciliation that follows: a backfill job after a follow, a purge job
// after an unfollow. Jobs are enqueued only after the edge write is
// durable, so a crash leaves the graph correct and the timeline lagging,
// never the reverse.
type RelationService struct {
	Graph         relationPort.RelationGraph
	Queue         fanoutPort.Queue
	BackfillLimit int
	Logger        *zap.Logger
}

func NewRelationService(graph relationPort.RelationGraph, queue fanoutPort.Queue, backfillLimit int, logger *zap.Logger) *RelationService {
	if backfillLimit <= 0 {
		backfillLimit = 10
	}
	return &RelationService{
		Graph:         graph,
		Queue:         queue,
		BackfillLimit: backfillLimit,
		Logger:        logger,
	}
}

func (s *RelationService) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	if err := s.Graph.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}
	job := &fanout.Job{
		Kind:       fanout.KindBackfill,
		FollowerID: followerID,
		FolloweeID: followeeID,
		Limit:      s.BackfillLimit,
	}
	if err := s.Queue.Enqueue(ctx, job); err != nil {
		// The edge is durable; the missing window self-heals on the
		// followee's next post.
		s.Logger.Error("could not enqueue backfill job",
			zap.String("follower", followerID),
			zap.String("followee", followeeID),
			zap.Error(err))
	}
	return nil
}

func (s *RelationService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := s.Graph.Unfollow(ctx, followerID, followeeID); err != nil {
		return err
	}
	job := &fanout.Job{
		Kind:       fanout.KindPurge,
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
	if err := s.Queue.Enqueue(ctx, job); err != nil {
		// Stale pointers are revocable: the purge re-runs on the next
		// sweep, and the feed read drops them once it does.
		s.Logger.Error("could not enqueue purge job",
			zap.String("follower", followerID),
			zap.String("followee", followeeID),
			zap.Error(err))
	}
	return nil
}

func (s *RelationService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.Graph.IsFollowing(ctx, followerID, followeeID)
}

func (s *RelationService) Followers(ctx context.Context, userID string) ([]string, error) {
	return s.Graph.Followers(ctx, userID)
}

func (s *RelationService) Followees(ctx context.Context, userID string) ([]string, error) {
	return s.Graph.Followees(ctx, userID)
}
