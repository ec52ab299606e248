package relation

import "context"

// RelationGraph stores bidirectional follow edges. Follow and Unfollow are
// idempotent and always touch both directions of an edge; a crash between
// the two single-row writes is the only tolerated inconsistency window.
type RelationGraph interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)

	// Followers lists users following userID (fan-out targets).
	Followers(ctx context.Context, userID string) ([]string, error)
	// Followees lists users userID follows (backfill sources).
	Followees(ctx context.Context, userID string) ([]string, error)

	// CheckSymmetry returns relation.ErrAsymmetricEdge when the attends
	// and followers entries of an edge disagree. Used by reconciliation,
	// never by the read path.
	CheckSymmetry(ctx context.Context, followerID, followeeID string) error
}
