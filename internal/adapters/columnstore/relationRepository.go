package columnstore

import (
	"context"
	"fmt"
	"time"

	"feedline/internal/core/relation"
	"feedline/internal/ports/store"
)

// RelationRepository keeps the follow graph in the relation table. Each
// edge is two columns: attends under the follower's row and followers under
// the followee's row. Both writes are idempotent puts, both removals are
// idempotent deletes; their transient divergence during a crash is the only
// tolerated inconsistency, repaired by re-running the same call.
type RelationRepository struct {
	store store.ColumnStore
	clock func() int64
}

func NewRelationRepository(cs store.ColumnStore) *RelationRepository {
	return &RelationRepository{
		store: cs,
		clock: func() int64 { return time.Now().UnixMilli() },
	}
}

func (repo *RelationRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	now := repo.clock()
	// attends first: a crash here leaves a half-edge that the next Follow
	// call or a reconciliation sweep completes.
	if err := repo.store.PutRow(ctx, TableRelation, followerID, FamilyAttends, followeeID, now, []byte(followeeID)); err != nil {
		return fmt.Errorf("follow attends: %w", err)
	}
	if err := repo.store.PutRow(ctx, TableRelation, followeeID, FamilyFollowers, followerID, now, []byte(followerID)); err != nil {
		return fmt.Errorf("follow followers: %w", err)
	}
	return nil
}

func (repo *RelationRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := repo.store.DeleteColumn(ctx, TableRelation, followerID, FamilyAttends, followeeID); err != nil {
		return fmt.Errorf("unfollow attends: %w", err)
	}
	if err := repo.store.DeleteColumn(ctx, TableRelation, followeeID, FamilyFollowers, followerID); err != nil {
		return fmt.Errorf("unfollow followers: %w", err)
	}
	return nil
}

func (repo *RelationRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	cells, err := repo.store.GetRow(ctx, TableRelation, followerID, FamilyAttends, 1)
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	for _, cell := range cells {
		if cell.Column == followeeID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *RelationRepository) Followers(ctx context.Context, userID string) ([]string, error) {
	return repo.columns(ctx, userID, FamilyFollowers)
}

func (repo *RelationRepository) Followees(ctx context.Context, userID string) ([]string, error) {
	return repo.columns(ctx, userID, FamilyAttends)
}

func (repo *RelationRepository) columns(ctx context.Context, userID, family string) ([]string, error) {
	cells, err := repo.store.GetRow(ctx, TableRelation, userID, family, 1)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", family, err)
	}
	ids := make([]string, 0, len(cells))
	for _, cell := range cells {
		ids = append(ids, cell.Column)
	}
	return ids, nil
}

func (repo *RelationRepository) CheckSymmetry(ctx context.Context, followerID, followeeID string) error {
	attends, err := repo.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	followers, err := repo.store.GetRow(ctx, TableRelation, followeeID, FamilyFollowers, 1)
	if err != nil {
		return fmt.Errorf("check symmetry: %w", err)
	}
	reverse := false
	for _, cell := range followers {
		if cell.Column == followerID {
			reverse = true
			break
		}
	}
	if attends != reverse {
		return fmt.Errorf("%w: attends(%s->%s)=%v followers=%v",
			relation.ErrAsymmetricEdge, followerID, followeeID, attends, reverse)
	}
	return nil
}
