package columnstore

import (
	"context"
	"fmt"
	"time"

	"feedline/internal/core/post"
	contentPort "feedline/internal/ports/content"
	"feedline/internal/ports/store"
)

const columnText = "text"

// ContentRepository is the durable post log over the content table: one row
// per post, family info, column text.
type ContentRepository struct {
	store store.ColumnStore
	clock func() int64 // unix millis
}

func NewContentRepository(cs store.ColumnStore) *ContentRepository {
	return &ContentRepository{
		store: cs,
		clock: func() int64 { return time.Now().UnixMilli() },
	}
}

// WithClock overrides the timestamp source. Tests use it to force
// deterministic creation times.
func (repo *ContentRepository) WithClock(clock func() int64) *ContentRepository {
	repo.clock = clock
	return repo
}

func (repo *ContentRepository) Append(ctx context.Context, authorID, text string) (post.Ref, error) {
	ref := post.Ref{AuthorID: authorID, CreatedAt: repo.clock()}
	err := repo.store.PutRow(ctx, TableContent, postRowKey(ref), FamilyInfo, columnText, ref.CreatedAt, []byte(text))
	if err != nil {
		return post.Ref{}, fmt.Errorf("append post: %w", err)
	}
	return ref, nil
}

func (repo *ContentRepository) Get(ctx context.Context, ref post.Ref) (*post.Post, error) {
	cells, err := repo.store.GetRow(ctx, TableContent, postRowKey(ref), FamilyInfo, 1)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	for _, cell := range cells {
		if cell.Column == columnText {
			return &post.Post{
				AuthorID:  ref.AuthorID,
				Text:      string(cell.Value),
				CreatedAt: ref.CreatedAt,
			}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (repo *ContentRepository) ScanByAuthor(ctx context.Context, authorID string, from *post.Ref) contentPort.Iterator {
	start := ""
	if from != nil {
		// Resume strictly after the cursor: the smallest key greater
		// than k is k followed by a NUL.
		start = postRowKey(*from) + "\x00"
	}
	return &postIterator{iter: repo.store.ScanPrefix(ctx, TableContent, postRowPrefix(authorID), start)}
}

type postIterator struct {
	iter store.Iterator
	post *post.Post
	err  error
}

func (it *postIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.iter.Next() {
		row := it.iter.Row()
		ref, err := parsePostRowKey(row.Key)
		if err != nil {
			it.err = err
			return false
		}
		for _, cell := range row.Cells {
			if cell.Family == FamilyInfo && cell.Column == columnText {
				it.post = &post.Post{
					AuthorID:  ref.AuthorID,
					Text:      string(cell.Value),
					CreatedAt: ref.CreatedAt,
				}
				return true
			}
		}
		// Row without a text cell: skip, do not fail the scan.
	}
	it.err = it.iter.Error()
	return false
}

func (it *postIterator) Post() *post.Post { return it.post }
func (it *postIterator) Error() error     { return it.err }
func (it *postIterator) Release()         { it.iter.Release() }
