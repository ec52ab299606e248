package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedline/internal/core/fanout"
	fanoutPort "feedline/internal/ports/fanout"
)

// FanoutWorker drains the durable job queue and drives the engine. It polls
// on a fixed interval and can be woken early (for example by a post.created
// event) so fresh posts do not wait out a full tick. Failed jobs stay
// pending with a bumped attempt counter until MaxAttempts, then get parked
// as failed; re-execution is always safe because the engine is idempotent.
type FanoutWorker struct {
	Queue       fanoutPort.Queue
	Engine      fanoutPort.Engine
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
	Logger      *zap.Logger

	wake chan struct{}
}

func NewFanoutWorker(queue fanoutPort.Queue, engine fanoutPort.Engine, batchSize int, interval time.Duration, maxAttempts int, logger *zap.Logger) *FanoutWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &FanoutWorker{
		Queue:       queue,
		Engine:      engine,
		BatchSize:   batchSize,
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Logger:      logger,
		wake:        make(chan struct{}, 1),
	}
}

// Wake nudges the worker to poll now instead of at the next tick.
func (w *FanoutWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *FanoutWorker) Run(ctx context.Context) {
	w.Logger.Info("fanout worker started",
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("interval", w.Interval))
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		w.Drain(ctx)
		select {
		case <-ctx.Done():
			w.Logger.Info("fanout worker stopped")
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// Drain processes pending jobs until the queue is empty or ctx ends.
func (w *FanoutWorker) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		jobs, err := w.Queue.Pending(ctx, w.BatchSize)
		if err != nil {
			w.Logger.Error("fetching pending jobs failed", zap.Error(err))
			return
		}
		if len(jobs) == 0 {
			return
		}
		progressed := false
		for _, job := range jobs {
			if ctx.Err() != nil {
				return
			}
			if w.process(ctx, job) {
				progressed = true
			}
		}
		// A pass that retired nothing means every job failed; back off
		// to the next tick instead of spinning on them.
		if !progressed {
			return
		}
	}
}

// process runs one job and reports whether it was retired from the pending
// queue (done or parked as failed).
func (w *FanoutWorker) process(ctx context.Context, job *fanout.Job) bool {
	err := w.execute(ctx, job)
	if err == nil {
		if err := w.Queue.MarkDone(ctx, job); err != nil {
			// The job re-runs on the next poll; harmless.
			w.Logger.Warn("could not mark job done", zap.String("job", job.ID.String()), zap.Error(err))
		}
		return true
	}

	var partial *fanout.PartialError
	if errors.As(err, &partial) {
		w.Logger.Warn("partial fan-out, retrying remaining followers",
			zap.String("job", job.ID.String()),
			zap.Int("remaining", len(partial.Remaining)),
			zap.Error(partial.Cause))
	} else {
		w.Logger.Warn("job failed",
			zap.String("job", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Error(err))
	}

	if job.Attempts+1 >= w.MaxAttempts {
		w.Logger.Error("job exhausted attempts, parking as failed",
			zap.String("job", job.ID.String()),
			zap.Int("attempts", job.Attempts+1))
		if err := w.Queue.MarkFailed(ctx, job); err != nil {
			w.Logger.Warn("could not mark job failed", zap.String("job", job.ID.String()), zap.Error(err))
		}
		return true
	}
	if err := w.Queue.Requeue(ctx, job); err != nil {
		w.Logger.Warn("could not requeue job", zap.String("job", job.ID.String()), zap.Error(err))
	}
	return false
}

func (w *FanoutWorker) execute(ctx context.Context, job *fanout.Job) error {
	switch job.Kind {
	case fanout.KindPost:
		return w.Engine.DistributePost(ctx, job.Ref)
	case fanout.KindBackfill:
		return w.Engine.BackfillOnFollow(ctx, job.FollowerID, job.FolloweeID, job.Limit)
	case fanout.KindPurge:
		return w.Engine.PurgeOnUnfollow(ctx, job.FollowerID, job.FolloweeID)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}
