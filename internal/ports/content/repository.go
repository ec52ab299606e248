package content

import (
	"context"

	"feedline/internal/core/post"
)

// Iterator yields an author's posts in creation order (ascending). The
// contract mirrors the store iterator: Next until false, then Error.
type Iterator interface {
	Next() bool
	Post() *post.Post
	Error() error
	Release()
}

// ContentStore is the durable log of posts, keyed by author + time. Rows
// are written once by the author's post path and never mutated.
type ContentStore interface {
	// Append records a new post, stamping it from the store's clock, and
	// returns its composite key.
	Append(ctx context.Context, authorID, text string) (post.Ref, error)

	// Get dereferences a post. Returns store.ErrNotFound when the target
	// is absent (for example retention-expired).
	Get(ctx context.Context, ref post.Ref) (*post.Post, error)

	// ScanByAuthor walks an author's posts ascending by creation time.
	// A non-nil from resumes after the given cursor.
	ScanByAuthor(ctx context.Context, authorID string, from *post.Ref) Iterator
}
