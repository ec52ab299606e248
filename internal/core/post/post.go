package post

// Ref identifies a post by its composite identity (author + creation time).
// CreatedAt is unix milliseconds and is carried as a first-class field; it
// is never re-derived by substringing a stored row identifier.
type Ref struct {
	AuthorID  string `json:"author_id"`
	CreatedAt int64  `json:"created_at"`
}

// Post is immutable once written. Two posts by the same author in the same
// millisecond share an identity; callers needing strict ordering must
// tolerate ties by timestamp.
type Post struct {
	AuthorID  string `json:"author_id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

func (p *Post) Ref() Ref {
	return Ref{AuthorID: p.AuthorID, CreatedAt: p.CreatedAt}
}
