package fanout

import (
	"context"

	"feedline/internal/core/fanout"
	"feedline/internal/core/post"
)

// Queue is the durable job queue feeding the fan-out worker. A job stays
// pending until explicitly marked done or failed, so a crashed worker's
// jobs are picked up again on the next poll.
type Queue interface {
	Enqueue(ctx context.Context, job *fanout.Job) error

	// Pending returns up to limit pending jobs, oldest first.
	Pending(ctx context.Context, limit int) ([]*fanout.Job, error)

	// MarkDone retires a completed job.
	MarkDone(ctx context.Context, job *fanout.Job) error

	// Requeue records a failed attempt, leaving the job pending.
	Requeue(ctx context.Context, job *fanout.Job) error

	// MarkFailed parks a job that exhausted its attempts.
	MarkFailed(ctx context.Context, job *fanout.Job) error
}

// Engine executes propagation work. Every sub-operation is idempotent and
// independent: re-delivery to a follower who already holds the pointer
// overwrites harmlessly, and one follower's failure never aborts the rest
// of the batch.
type Engine interface {
	// DistributePost inserts a pointer to ref into every follower's
	// timeline. Returns *fanout.PartialError when some followers remain.
	DistributePost(ctx context.Context, ref post.Ref) error

	// BackfillOnFollow copies the followee's most recent limit posts into
	// the follower's timeline. Must run after the follow edge is durable.
	BackfillOnFollow(ctx context.Context, followerID, followeeID string, limit int) error

	// PurgeOnUnfollow drops the followee's pointers from the follower's
	// timeline. Must run after the edge removal is durable.
	PurgeOnUnfollow(ctx context.Context, followerID, followeeID string) error
}
