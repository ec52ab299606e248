package fanout

import (
	"context"

	"feedline/internal/core/post"
)

// Notifier announces a freshly appended post so a push-style consumer can
// trigger fan-out without waiting for the next queue poll. Delivery is best
// effort; the durable queue row is the source of truth.
type Notifier interface {
	PostCreated(ctx context.Context, ref post.Ref) error
}
