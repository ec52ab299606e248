package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"feedline/internal/ports/store"
)

// Key layout (segments NUL-joined so arbitrary row keys cannot collide):
//
//	cf <table> rows          - sorted set of row keys (lex order, score 0)
//	cf <table> <row> cols    - set of "<family>\x00<column>" members
//	cf <table> <row> <family> <column> - hash: zero-padded version -> value
//
// The rows sorted set gives ordered prefix scans via ZRANGEBYLEX; the cols
// set lets GetRow enumerate a row without scanning the keyspace.
const sep = "\x00"

type Store struct {
	client *redis.Client
	schema store.Schema
}

func NewStore(client *redis.Client, schema store.Schema) *Store {
	return &Store{client: client, schema: schema}
}

func rowsKey(table string) string {
	return "cf" + sep + table + sep + "rows"
}

func colsKey(table, rowKey string) string {
	return "cf" + sep + table + sep + rowKey + sep + "cols"
}

func cellKey(table, rowKey, family, column string) string {
	return "cf" + sep + table + sep + rowKey + sep + family + sep + column
}

func field(version int64) string {
	return fmt.Sprintf("%020d", version)
}

func (s *Store) PutRow(ctx context.Context, table, rowKey, family, column string, version int64, value []byte) error {
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, rowsKey(table), &redis.Z{Score: 0, Member: rowKey})
	pipe.SAdd(ctx, colsKey(table, rowKey), family+sep+column)
	pipe.HSet(ctx, cellKey(table, rowKey, family, column), field(version), value)
	if _, err := pipe.Exec(ctx); err != nil {
		return store.Unavailable("redis put", err)
	}
	return s.trim(ctx, table, rowKey, family, column)
}

// trim drops the oldest versions of a column beyond the schema bound,
// the ZREMRANGEBYRANK-style capping for hash-held versions.
func (s *Store) trim(ctx context.Context, table, rowKey, family, column string) error {
	max := s.schema.MaxVersions(table, family)
	fields, err := s.client.HKeys(ctx, cellKey(table, rowKey, family, column)).Result()
	if err != nil {
		return store.Unavailable("redis trim", err)
	}
	if len(fields) <= max {
		return nil
	}
	sort.Strings(fields)
	if err := s.client.HDel(ctx, cellKey(table, rowKey, family, column), fields[:len(fields)-max]...).Err(); err != nil {
		return store.Unavailable("redis trim", err)
	}
	return nil
}

func (s *Store) GetRow(ctx context.Context, table, rowKey, family string, maxVersions int) ([]store.Cell, error) {
	members, err := s.client.SMembers(ctx, colsKey(table, rowKey)).Result()
	if err != nil && err != redis.Nil {
		return nil, store.Unavailable("redis get row", err)
	}
	sort.Strings(members)

	var cells []store.Cell
	for _, member := range members {
		parts := strings.SplitN(member, sep, 2)
		if len(parts) != 2 {
			continue
		}
		fam, column := parts[0], parts[1]
		if family != "" && fam != family {
			continue
		}
		depth := maxVersions
		if depth <= 0 {
			depth = s.schema.MaxVersions(table, fam)
		}
		colCells, err := s.columnCells(ctx, table, rowKey, fam, column, depth)
		if err != nil {
			return nil, err
		}
		cells = append(cells, colCells...)
	}
	return cells, nil
}

// columnCells reads one column's versions, newest first, capped at depth.
func (s *Store) columnCells(ctx context.Context, table, rowKey, family, column string, depth int) ([]store.Cell, error) {
	values, err := s.client.HGetAll(ctx, cellKey(table, rowKey, family, column)).Result()
	if err != nil && err != redis.Nil {
		return nil, store.Unavailable("redis get column", err)
	}
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(fields)))
	if len(fields) > depth {
		fields = fields[:depth]
	}

	cells := make([]store.Cell, 0, len(fields))
	for _, f := range fields {
		version, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: bad version field %q: %w", f, err)
		}
		cells = append(cells, store.Cell{
			Family:  family,
			Column:  column,
			Version: version,
			Value:   []byte(values[f]),
		})
	}
	return cells, nil
}

func (s *Store) DeleteColumn(ctx context.Context, table, rowKey, family, column string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, cellKey(table, rowKey, family, column))
	pipe.SRem(ctx, colsKey(table, rowKey), family+sep+column)
	if _, err := pipe.Exec(ctx); err != nil {
		return store.Unavailable("redis delete", err)
	}

	// Drop the row from the scan index once its last column is gone.
	n, err := s.client.SCard(ctx, colsKey(table, rowKey)).Result()
	if err != nil {
		return store.Unavailable("redis delete", err)
	}
	if n == 0 {
		pipe := s.client.Pipeline()
		pipe.Del(ctx, colsKey(table, rowKey))
		pipe.ZRem(ctx, rowsKey(table), rowKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return store.Unavailable("redis delete", err)
		}
	}
	return nil
}

const scanPage = 64

func (s *Store) ScanPrefix(ctx context.Context, table, prefix, start string) store.Iterator {
	min := "[" + prefix
	if start != "" && start > prefix {
		min = "[" + start
	}
	return &rowIterator{
		store:  s,
		ctx:    ctx,
		table:  table,
		prefix: prefix,
		min:    min,
	}
}

func (s *Store) Close() error { return s.client.Close() }

type rowIterator struct {
	store  *Store
	ctx    context.Context
	table  string
	prefix string
	min    string // next ZRANGEBYLEX lower bound
	page   []string
	pos    int
	row    store.Row
	err    error
	done   bool
}

func (it *rowIterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}
	if it.pos >= len(it.page) {
		if !it.fetch() {
			return false
		}
	}
	key := it.page[it.pos]
	it.pos++
	cells, err := it.store.GetRow(it.ctx, it.table, key, "", 0)
	if err != nil {
		it.err = err
		return false
	}
	it.row = store.Row{Key: key, Cells: cells}
	return true
}

func (it *rowIterator) fetch() bool {
	keys, err := it.store.client.ZRangeByLex(it.ctx, rowsKey(it.table), &redis.ZRangeBy{
		Min:   it.min,
		Max:   "[" + it.prefix + "\xff",
		Count: scanPage,
	}).Result()
	if err != nil && err != redis.Nil {
		it.err = store.Unavailable("redis scan", err)
		return false
	}
	if len(keys) == 0 {
		it.done = true
		return false
	}
	it.page = keys
	it.pos = 0
	// Resume strictly after the last key of this page.
	it.min = "(" + keys[len(keys)-1]
	return true
}

func (it *rowIterator) Row() store.Row { return it.row }
func (it *rowIterator) Error() error   { return it.err }
func (it *rowIterator) Release()       {}
