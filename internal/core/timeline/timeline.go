package timeline

import "feedline/internal/core/post"

// Pointer is one entry in an owner's timeline row: a reference to a post by
// a followed author, versioned by the post's creation time. The store keeps
// a bounded number of versions per (owner, author) pair, so each owner holds
// a naturally capped window of every followed author's recent posts.
type Pointer struct {
	OwnerID  string   `json:"owner_id"`
	AuthorID string   `json:"author_id"`
	Ref      post.Ref `json:"ref"`
}
