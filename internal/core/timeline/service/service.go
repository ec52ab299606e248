package timelineapp

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	postEntity "feedline/internal/core/post"
	contentPort "feedline/internal/ports/content"
	"feedline/internal/ports/store"
	timelinePort "feedline/internal/ports/timeline"
)

// TimelineService assembles a user's feed at read time: pointers from the
// precomputed timeline row, content from the post log, merged newest first.
type TimelineService struct {
	Index   timelinePort.TimelineIndex
	Content contentPort.ContentStore
	Logger  *zap.Logger
}

func NewTimelineService(index timelinePort.TimelineIndex, content contentPort.ContentStore, logger *zap.Logger) *TimelineService {
	return &TimelineService{Index: index, Content: content, Logger: logger}
}

// GetFeed returns the owner's aggregated feed, at most maxPerAuthor posts
// per followed author, ordered by creation time descending. A pointer whose
// post has expired is skipped, not an error.
func (s *TimelineService) GetFeed(ctx context.Context, ownerID string, maxPerAuthor int) ([]*postEntity.Post, error) {
	recent, err := s.Index.ReadRecent(ctx, ownerID, maxPerAuthor)
	if err != nil {
		return nil, err
	}

	feed := make([]*postEntity.Post, 0, len(recent))
	for _, refs := range recent {
		for _, ref := range refs {
			p, err := s.Content.Get(ctx, ref)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			feed = append(feed, p)
		}
	}

	// Only per-author order is guaranteed by the index; the merged feed is
	// sorted here. Ties keep a stable author order for determinism.
	sort.Slice(feed, func(i, j int) bool {
		if feed[i].CreatedAt != feed[j].CreatedAt {
			return feed[i].CreatedAt > feed[j].CreatedAt
		}
		return feed[i].AuthorID < feed[j].AuthorID
	})
	return feed, nil
}
