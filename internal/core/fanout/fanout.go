package fanout

import (
	"fmt"

	"github.com/gofrs/uuid"

	"feedline/internal/core/post"
)

// Kind discriminates the three propagation jobs the engine executes.
type Kind string

const (
	KindPost     Kind = "post"     // deliver a fresh post to all followers
	KindBackfill Kind = "backfill" // copy a followee's recent posts to a new follower
	KindPurge    Kind = "purge"    // drop an unfollowed author from a timeline
)

const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is one unit of asynchronous propagation work. Jobs are durable rows;
// a crash mid-execution re-runs the job, which is safe because every
// timeline insert and purge is idempotent.
type Job struct {
	ID         uuid.UUID
	Kind       Kind
	Ref        post.Ref // KindPost: the post to distribute
	FollowerID string   // KindBackfill / KindPurge
	FolloweeID string   // KindBackfill / KindPurge
	Limit      int      // KindBackfill: most-recent posts to copy
	Status     string
	Attempts   int
	CreatedAt  int64
}

// PartialError reports a fan-out batch that updated some followers but not
// all. The primary write already succeeded, so this is never surfaced to
// the posting request; the job is retried for the remaining followers.
type PartialError struct {
	Remaining []string
	Cause     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("fanout: %d followers not updated: %v", len(e.Remaining), e.Cause)
}

func (e *PartialError) Unwrap() error { return e.Cause }
