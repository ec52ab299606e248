package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"feedline/internal/core/post"
)

// SubjectPostCreated carries the implicit contract between the publish
// path and the fan-out worker's wake-up subscription.
const SubjectPostCreated = "post.created"

// PostCreatedEvent is the wire shape of a fresh post announcement. It only
// carries the composite key: the consumer reads the durable queue, never
// the event payload, for the actual work.
type PostCreatedEvent struct {
	AuthorID  string `json:"author_id"`
	CreatedAt int64  `json:"created_at"`
}

type Publisher struct {
	nc     *nats.Conn
	Logger *zap.Logger
}

func NewPublisher(nc *nats.Conn, logger *zap.Logger) *Publisher {
	return &Publisher{nc: nc, Logger: logger}
}

func (p *Publisher) PostCreated(ctx context.Context, ref post.Ref) error {
	data, err := json.Marshal(PostCreatedEvent{AuthorID: ref.AuthorID, CreatedAt: ref.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal post.created: %w", err)
	}
	if err := p.nc.Publish(SubjectPostCreated, data); err != nil {
		return fmt.Errorf("publish post.created: %w", err)
	}
	return nil
}

// SubscribePostCreated wires post announcements to the worker's wake-up.
// Loss of an event only delays fan-out until the next poll tick.
func SubscribePostCreated(nc *nats.Conn, logger *zap.Logger, wake func()) (*nats.Subscription, error) {
	return nc.Subscribe(SubjectPostCreated, func(msg *nats.Msg) {
		var event PostCreatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("invalid post.created event", zap.Error(err))
			return
		}
		logger.Debug("post.created received",
			zap.String("author", event.AuthorID),
			zap.Int64("created_at", event.CreatedAt))
		wake()
	})
}
