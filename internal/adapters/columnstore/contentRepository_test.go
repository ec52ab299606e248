package columnstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"feedline/internal/adapters/memory"
	"feedline/internal/core/post"
	"feedline/internal/ports/store"
)

// fakeClock hands out strictly increasing millis starting at base.
func fakeClock(base int64) func() int64 {
	next := base
	return func() int64 {
		next++
		return next
	}
}

func TestContentAppendGet(t *testing.T) {
	cs := memory.NewStore(Schema(0))
	repo := NewContentRepository(cs).WithClock(fakeClock(1000))
	ctx := context.Background()

	ref, err := repo.Append(ctx, "0001", "hello")
	require.NoError(t, err)
	require.Equal(t, "0001", ref.AuthorID)
	require.Equal(t, int64(1001), ref.CreatedAt)

	p, err := repo.Get(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, "hello", p.Text)
	require.Equal(t, "0001", p.AuthorID)
	require.Equal(t, ref.CreatedAt, p.CreatedAt)

	_, err = repo.Get(ctx, post.Ref{AuthorID: "0001", CreatedAt: 42})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestContentScanByAuthor(t *testing.T) {
	cs := memory.NewStore(Schema(0))
	repo := NewContentRepository(cs).WithClock(fakeClock(0))
	ctx := context.Background()

	var refs []post.Ref
	for _, text := range []string{"one", "two", "three"} {
		ref, err := repo.Append(ctx, "0001", text)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	_, err := repo.Append(ctx, "0002", "other author")
	require.NoError(t, err)

	var texts []string
	iter := repo.ScanByAuthor(ctx, "0001", nil)
	for iter.Next() {
		texts = append(texts, iter.Post().Text)
	}
	iter.Release()
	require.NoError(t, iter.Error())
	require.Equal(t, []string{"one", "two", "three"}, texts)

	// Resume strictly after the cursor.
	texts = nil
	iter = repo.ScanByAuthor(ctx, "0001", &refs[0])
	for iter.Next() {
		texts = append(texts, iter.Post().Text)
	}
	iter.Release()
	require.NoError(t, iter.Error())
	require.Equal(t, []string{"two", "three"}, texts)
}

func TestContentScanAuthorPrefixIsolation(t *testing.T) {
	cs := memory.NewStore(Schema(0))
	repo := NewContentRepository(cs).WithClock(fakeClock(0))
	ctx := context.Background()

	_, err := repo.Append(ctx, "12", "short id")
	require.NoError(t, err)
	_, err = repo.Append(ctx, "123", "longer id")
	require.NoError(t, err)

	var texts []string
	iter := repo.ScanByAuthor(ctx, "12", nil)
	for iter.Next() {
		texts = append(texts, iter.Post().Text)
	}
	iter.Release()
	require.NoError(t, iter.Error())
	require.Equal(t, []string{"short id"}, texts, "author 123 must not leak into 12's scan")
}

func TestParsePostRowKey(t *testing.T) {
	ref := post.Ref{AuthorID: "user#x", CreatedAt: 1234567890123}
	parsed, err := parsePostRowKey(postRowKey(ref))
	require.NoError(t, err)
	require.Equal(t, ref, parsed)

	_, err = parsePostRowKey("no-separator")
	require.Error(t, err)
	require.False(t, errors.Is(err, store.ErrNotFound))
}
