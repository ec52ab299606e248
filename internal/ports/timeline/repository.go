package timeline

import (
	"context"

	"feedline/internal/core/post"
)

// TimelineIndex is the per-user precomputed feed index: one row per owner,
// one column per followed author, one version per pointed-to post. Rows are
// owned by their subject but written by every author the owner follows;
// all writes are idempotent single-cell puts so concurrent fan-out and
// backfill never conflict.
type TimelineIndex interface {
	// Insert writes a pointer version under (ownerID, authorID). Versions
	// beyond the retention depth are dropped by the store, not here.
	Insert(ctx context.Context, ownerID, authorID string, ref post.Ref) error

	// Purge removes every pointer version for authorID from the owner's
	// row. No-op when absent.
	Purge(ctx context.Context, ownerID, authorID string) error

	// ReadRecent returns, per followed author, the newest pointers first.
	// maxPerAuthor <= 0 means the configured retention depth.
	ReadRecent(ctx context.Context, ownerID string, maxPerAuthor int) (map[string][]post.Ref, error)
}
