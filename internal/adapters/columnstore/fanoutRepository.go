package columnstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"feedline/internal/core/fanout"
	"feedline/internal/ports/store"
)

const (
	columnKind     = "kind"
	columnPostKey  = "post_key"
	columnFollower = "follower"
	columnFollowee = "followee"
	columnLimit    = "limit"
	columnAttempts = "attempts"
)

// FanoutRepository is the durable job queue in the fanout table. Row keys
// are status-prefixed ("pending#<millis>#<id>") so a prefix scan over
// "pending#" yields due jobs oldest first, and retiring a job is a
// rewrite under the "done#" prefix. The outbox-row pattern: a job survives
// crashes until something explicitly marks it done or failed.
type FanoutRepository struct {
	store store.ColumnStore
	clock func() int64
}

func NewFanoutRepository(cs store.ColumnStore) *FanoutRepository {
	return &FanoutRepository{
		store: cs,
		clock: func() int64 { return time.Now().UnixMilli() },
	}
}

func jobRowKey(status string, createdAt int64, id uuid.UUID) string {
	return fmt.Sprintf("%s#%013d#%s", status, createdAt, id)
}

func (repo *FanoutRepository) Enqueue(ctx context.Context, job *fanout.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.Must(uuid.NewV4())
	}
	if job.CreatedAt == 0 {
		job.CreatedAt = repo.clock()
	}
	job.Status = fanout.StatusPending
	return repo.write(ctx, job)
}

func (repo *FanoutRepository) write(ctx context.Context, job *fanout.Job) error {
	row := jobRowKey(job.Status, job.CreatedAt, job.ID)
	now := repo.clock()
	cols := map[string]string{
		columnKind:     string(job.Kind),
		columnAttempts: strconv.Itoa(job.Attempts),
	}
	switch job.Kind {
	case fanout.KindPost:
		cols[columnPostKey] = postRowKey(job.Ref)
	case fanout.KindBackfill:
		cols[columnFollower] = job.FollowerID
		cols[columnFollowee] = job.FolloweeID
		cols[columnLimit] = strconv.Itoa(job.Limit)
	case fanout.KindPurge:
		cols[columnFollower] = job.FollowerID
		cols[columnFollowee] = job.FolloweeID
	default:
		return fmt.Errorf("fanout queue: unknown job kind %q", job.Kind)
	}
	for col, val := range cols {
		if err := repo.store.PutRow(ctx, TableFanout, row, FamilyInfo, col, now, []byte(val)); err != nil {
			return fmt.Errorf("fanout enqueue: %w", err)
		}
	}
	return nil
}

func (repo *FanoutRepository) Pending(ctx context.Context, limit int) ([]*fanout.Job, error) {
	iter := repo.store.ScanPrefix(ctx, TableFanout, fanout.StatusPending+"#", "")
	defer iter.Release()

	var jobs []*fanout.Job
	for iter.Next() && (limit <= 0 || len(jobs) < limit) {
		job, err := decodeJob(iter.Row())
		if err != nil {
			// A row that does not decode is an enqueue still writing its
			// columns, or one cut short by a crash. Skip it: the scan
			// must keep serving the healthy jobs, and an in-flight row
			// completes before the next poll.
			continue
		}
		jobs = append(jobs, job)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("fanout pending: %w", err)
	}
	return jobs, nil
}

func decodeJob(row store.Row) (*fanout.Job, error) {
	parts := splitJobKey(row.Key)
	if parts == nil {
		return nil, fmt.Errorf("fanout: malformed job key %q", row.Key)
	}
	createdAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fanout: bad timestamp in job key %q: %w", row.Key, err)
	}
	id, err := uuid.FromString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("fanout: bad id in job key %q: %w", row.Key, err)
	}

	job := &fanout.Job{ID: id, Status: parts[0], CreatedAt: createdAt}
	for _, cell := range row.Cells {
		val := string(cell.Value)
		switch cell.Column {
		case columnKind:
			job.Kind = fanout.Kind(val)
		case columnPostKey:
			ref, err := parsePostRowKey(val)
			if err != nil {
				return nil, err
			}
			job.Ref = ref
		case columnFollower:
			job.FollowerID = val
		case columnFollowee:
			job.FolloweeID = val
		case columnLimit:
			job.Limit, _ = strconv.Atoi(val)
		case columnAttempts:
			job.Attempts, _ = strconv.Atoi(val)
		}
	}
	if job.Kind == "" {
		return nil, fmt.Errorf("fanout: job %s has no kind", row.Key)
	}
	return job, nil
}

// splitJobKey splits "status#millis#uuid"; statuses never contain '#'.
func splitJobKey(key string) []string {
	parts := strings.SplitN(key, "#", 3)
	if len(parts) != 3 {
		return nil
	}
	return parts
}

func (repo *FanoutRepository) MarkDone(ctx context.Context, job *fanout.Job) error {
	return repo.move(ctx, job, fanout.StatusDone)
}

func (repo *FanoutRepository) MarkFailed(ctx context.Context, job *fanout.Job) error {
	return repo.move(ctx, job, fanout.StatusFailed)
}

// Requeue bumps the attempt counter in place; the job stays pending.
func (repo *FanoutRepository) Requeue(ctx context.Context, job *fanout.Job) error {
	job.Attempts++
	row := jobRowKey(fanout.StatusPending, job.CreatedAt, job.ID)
	err := repo.store.PutRow(ctx, TableFanout, row, FamilyInfo, columnAttempts,
		repo.clock(), []byte(strconv.Itoa(job.Attempts)))
	if err != nil {
		return fmt.Errorf("fanout requeue: %w", err)
	}
	return nil
}

// move rewrites the job row under the new status prefix, then deletes the
// old row column by column. A crash in between leaves both rows; the job
// re-runs, which is safe because execution is idempotent.
func (repo *FanoutRepository) move(ctx context.Context, job *fanout.Job, status string) error {
	oldRow := jobRowKey(job.Status, job.CreatedAt, job.ID)
	job.Status = status
	if err := repo.write(ctx, job); err != nil {
		return err
	}
	cells, err := repo.store.GetRow(ctx, TableFanout, oldRow, FamilyInfo, 1)
	if err != nil {
		return fmt.Errorf("fanout move: %w", err)
	}
	for _, cell := range cells {
		if err := repo.store.DeleteColumn(ctx, TableFanout, oldRow, FamilyInfo, cell.Column); err != nil {
			return fmt.Errorf("fanout move: %w", err)
		}
	}
	return nil
}
