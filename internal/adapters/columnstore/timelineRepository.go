package columnstore

import (
	"context"
	"fmt"

	"feedline/internal/core/post"
	"feedline/internal/ports/store"
)

// TimelineRepository is the moment table: one row per timeline owner, one
// info column per followed author, one version per pointed-to post. The
// version is the post's creation time and the value is the content row key,
// so inserting the same pointer twice overwrites harmlessly.
type TimelineRepository struct {
	store store.ColumnStore
	depth int // retention bound, mirrors the moment schema
}

func NewTimelineRepository(cs store.ColumnStore, depth int) *TimelineRepository {
	if depth <= 0 {
		depth = DefaultTimelineDepth
	}
	return &TimelineRepository{store: cs, depth: depth}
}

func (repo *TimelineRepository) Insert(ctx context.Context, ownerID, authorID string, ref post.Ref) error {
	err := repo.store.PutRow(ctx, TableMoment, ownerID, FamilyInfo, authorID, ref.CreatedAt, []byte(postRowKey(ref)))
	if err != nil {
		return fmt.Errorf("timeline insert: %w", err)
	}
	return nil
}

func (repo *TimelineRepository) Purge(ctx context.Context, ownerID, authorID string) error {
	if err := repo.store.DeleteColumn(ctx, TableMoment, ownerID, FamilyInfo, authorID); err != nil {
		return fmt.Errorf("timeline purge: %w", err)
	}
	return nil
}

func (repo *TimelineRepository) ReadRecent(ctx context.Context, ownerID string, maxPerAuthor int) (map[string][]post.Ref, error) {
	if maxPerAuthor <= 0 || maxPerAuthor > repo.depth {
		maxPerAuthor = repo.depth
	}
	cells, err := repo.store.GetRow(ctx, TableMoment, ownerID, FamilyInfo, maxPerAuthor)
	if err != nil {
		return nil, fmt.Errorf("timeline read: %w", err)
	}
	recent := make(map[string][]post.Ref)
	for _, cell := range cells {
		ref, err := parsePostRowKey(string(cell.Value))
		if err != nil {
			// A corrupt pointer is skipped like an expired one; the feed
			// must not fail on a single bad cell.
			continue
		}
		recent[cell.Column] = append(recent[cell.Column], ref)
	}
	return recent, nil
}
