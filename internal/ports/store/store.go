package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a row, column or version does not exist.
// Absence is a normal outcome for idempotent deletes and expired pointers.
var ErrNotFound = errors.New("store: not found")

// ErrUnavailable wraps transient backend failures that are safe to retry.
var ErrUnavailable = errors.New("store: unavailable")

// Unavailable tags a backend error as transient so callers can match it
// with errors.Is(err, ErrUnavailable) and schedule a retry.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Cell is one versioned value of a column inside a row.
type Cell struct {
	Family  string
	Column  string
	Version int64
	Value   []byte
}

// Row is a row key together with its cells, as produced by a scan.
type Row struct {
	Key   string
	Cells []Cell
}

// Schema declares, per table and column family, how many versions of each
// column the store retains. Zero means a single version.
type Schema map[string]map[string]int

// MaxVersions returns the retention bound for a family, defaulting to 1.
func (s Schema) MaxVersions(table, family string) int {
	if fams, ok := s[table]; ok {
		if n, ok := fams[family]; ok && n > 0 {
			return n
		}
	}
	return 1
}

// Iterator walks rows in ascending key order. The contract follows the
// goleveldb iterator: call Next until it returns false, then check Error.
type Iterator interface {
	Next() bool
	Row() Row
	Error() error
	Release()
}

// ColumnStore is the sorted column-family store client the feed core is
// built against. Every cross-row effect in the system is expressed as a set
// of independently idempotent single-row calls on this interface, so no
// backend needs multi-row transactions.
type ColumnStore interface {
	// PutRow writes one versioned cell. Writing the same
	// (table, rowKey, family, column, version) again overwrites harmlessly.
	// Versions beyond the schema's retention bound are dropped.
	PutRow(ctx context.Context, table, rowKey, family, column string, version int64, value []byte) error

	// GetRow returns the cells of a row, ordered by family, then column,
	// then version descending. An empty family selects all families.
	// maxVersions caps versions returned per column; <= 0 means the
	// schema's retention bound. A missing row yields an empty slice.
	GetRow(ctx context.Context, table, rowKey, family string, maxVersions int) ([]Cell, error)

	// DeleteColumn removes every version of a column. Deleting an absent
	// column is a no-op.
	DeleteColumn(ctx context.Context, table, rowKey, family, column string) error

	// ScanPrefix iterates rows whose key starts with prefix, ascending.
	// A non-empty start resumes from the first key >= start, letting a
	// caller restart a scan from a saved cursor.
	ScanPrefix(ctx context.Context, table, prefix, start string) Iterator

	Close() error
}
