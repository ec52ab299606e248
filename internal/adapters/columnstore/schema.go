package columnstore

import (
	"fmt"
	"strconv"
	"strings"

	"feedline/internal/core/post"
	"feedline/internal/ports/store"
)

// Table and family layout, after the classic weibo schema: content rows
// keyed by author + creation time, relation rows holding both edge
// directions, moment rows holding one multi-versioned column per followed
// author. The user and fanout tables are service-side additions.
const (
	TableContent  = "content"
	TableRelation = "relation"
	TableMoment   = "moment"
	TableUser     = "user"
	TableFanout   = "fanout"

	FamilyInfo      = "info"
	FamilyAttends   = "attends"
	FamilyFollowers = "followers"
)

// DefaultTimelineDepth matches the moment table's historical retention.
const DefaultTimelineDepth = 1000

// Schema builds the store schema. timelineDepth is the retention bound of
// the moment info family: how many recent posts per followed author an
// owner's timeline row can hold.
func Schema(timelineDepth int) store.Schema {
	if timelineDepth <= 0 {
		timelineDepth = DefaultTimelineDepth
	}
	return store.Schema{
		TableContent:  {FamilyInfo: 1},
		TableRelation: {FamilyAttends: 1, FamilyFollowers: 1},
		TableMoment:   {FamilyInfo: timelineDepth},
		TableUser:     {FamilyInfo: 1},
		TableFanout:   {FamilyInfo: 1},
	}
}

// Content row keys are author + "#" + zero-padded millis, so a prefix scan
// on author + "#" yields that author's posts in creation order and an
// author ID that prefixes another ("12" vs "123") can never leak into the
// wrong scan.
const (
	postKeySep   = "#"
	postKeyWidth = 13 // millis, zero-padded; good until year 2286
)

func postRowKey(ref post.Ref) string {
	return ref.AuthorID + postKeySep + fmt.Sprintf("%0*d", postKeyWidth, ref.CreatedAt)
}

func postRowPrefix(authorID string) string {
	return authorID + postKeySep
}

func parsePostRowKey(key string) (post.Ref, error) {
	idx := strings.LastIndex(key, postKeySep)
	if idx < 0 {
		return post.Ref{}, fmt.Errorf("columnstore: malformed post key %q", key)
	}
	millis, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return post.Ref{}, fmt.Errorf("columnstore: bad timestamp in post key %q: %w", key, err)
	}
	return post.Ref{AuthorID: key[:idx], CreatedAt: millis}, nil
}
