package relation

import "errors"

// ErrAsymmetricEdge reports a follow edge present in one direction but not
// the other. The read path never repairs this silently; it is surfaced for
// an external reconciliation sweep.
var ErrAsymmetricEdge = errors.New("relation: asymmetric follow edge")

// Edge is a directed follow relationship. It is stored redundantly under
// both participants' rows so each direction is an O(1) lookup: an attends
// entry under the follower and a followers entry under the followee.
type Edge struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
	CreatedAt  int64  `json:"created_at"`
}
