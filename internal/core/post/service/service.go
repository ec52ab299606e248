package postapp

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"feedline/internal/core/fanout"
	postEntity "feedline/internal/core/post"
	contentPort "feedline/internal/ports/content"
	fanoutPort "feedline/internal/ports/fanout"
)

var ErrEmptyText = errors.New("post: empty text")

// PostService owns the publish path: one durable content append, then a
// fan-out job. The caller is acknowledged as soon as the append succeeds;
// distribution completes asynchronously and idempotently.
type PostService struct {
	Content  contentPort.ContentStore
	Queue    fanoutPort.Queue
	Notifier fanoutPort.Notifier // optional
	Logger   *zap.Logger
}

func NewPostService(content contentPort.ContentStore, queue fanoutPort.Queue, notifier fanoutPort.Notifier, logger *zap.Logger) *PostService {
	return &PostService{
		Content:  content,
		Queue:    queue,
		Notifier: notifier,
		Logger:   logger,
	}
}

func (s *PostService) Publish(ctx context.Context, authorID, text string) (postEntity.Ref, error) {
	if text == "" {
		return postEntity.Ref{}, ErrEmptyText
	}

	ref, err := s.Content.Append(ctx, authorID, text)
	if err != nil {
		return postEntity.Ref{}, err
	}

	// The primary write is durable; everything below is best effort and
	// recoverable, so the publish still succeeds if it fails.
	job := &fanout.Job{Kind: fanout.KindPost, Ref: ref}
	if err := s.Queue.Enqueue(ctx, job); err != nil {
		s.Logger.Error("could not enqueue fan-out job",
			zap.String("author", authorID), zap.Error(err))
	} else if s.Notifier != nil {
		if err := s.Notifier.PostCreated(ctx, ref); err != nil {
			s.Logger.Warn("post.created notify failed", zap.Error(err))
		}
	}
	return ref, nil
}

func (s *PostService) Get(ctx context.Context, ref postEntity.Ref) (*postEntity.Post, error) {
	return s.Content.Get(ctx, ref)
}

// History returns up to limit posts by an author in creation order,
// resuming after the from cursor when given. The last returned post's Ref
// is the cursor for the next page.
func (s *PostService) History(ctx context.Context, authorID string, from *postEntity.Ref, limit int) ([]*postEntity.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	iter := s.Content.ScanByAuthor(ctx, authorID, from)
	defer iter.Release()

	var posts []*postEntity.Post
	for len(posts) < limit && iter.Next() {
		posts = append(posts, iter.Post())
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return posts, nil
}
