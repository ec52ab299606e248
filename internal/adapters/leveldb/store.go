package leveldb

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"feedline/internal/ports/store"
)

// Cell keys are NUL-separated segments so that a scan over
// table\0rowPrefix visits whole rows in ascending key order:
//
//	<table> \0 <rowKey> \0 <family> \0 <column> \0 <version %020d>
//
// Row keys, families and columns must not contain NUL. Versions are
// zero-padded so lexicographic order equals numeric order.
const sep = "\x00"

// Store is a ColumnStore over a single goleveldb database. LevelDB already
// keeps keys sorted, so prefix scans and version ordering fall out of the
// key encoding; multi-version retention is enforced at write time.
type Store struct {
	db     *leveldb.DB
	schema store.Schema
}

func Open(path string, schema store.Schema) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb open %s: %w", path, err)
	}
	return &Store{db: db, schema: schema}, nil
}

func cellKey(table, rowKey, family, column string, version int64) []byte {
	return []byte(fmt.Sprintf("%s%s%s%s%s%s%s%s%020d", table, sep, rowKey, sep, family, sep, column, sep, version))
}

func columnPrefix(table, rowKey, family, column string) []byte {
	return []byte(table + sep + rowKey + sep + family + sep + column + sep)
}

func (s *Store) PutRow(ctx context.Context, table, rowKey, family, column string, version int64, value []byte) error {
	if err := s.db.Put(cellKey(table, rowKey, family, column, version), value, nil); err != nil {
		return store.Unavailable("leveldb put", err)
	}
	return s.trim(table, rowKey, family, column)
}

// trim drops the oldest versions of a column beyond the schema bound.
func (s *Store) trim(table, rowKey, family, column string) error {
	max := s.schema.MaxVersions(table, family)
	iter := s.db.NewIterator(util.BytesPrefix(columnPrefix(table, rowKey, family, column)), nil)
	defer iter.Release()

	var keys [][]byte
	for iter.Next() {
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return store.Unavailable("leveldb trim scan", err)
	}
	if len(keys) <= max {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, key := range keys[:len(keys)-max] {
		batch.Delete(key)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return store.Unavailable("leveldb trim", err)
	}
	return nil
}

func (s *Store) GetRow(ctx context.Context, table, rowKey, family string, maxVersions int) ([]store.Cell, error) {
	prefix := table + sep + rowKey + sep
	if family != "" {
		prefix += family + sep
	}
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	return s.collect(iter, table, maxVersions)
}

// collect assembles the cells under the iterator's range, capping versions
// per column and flipping them newest-first. Cells arrive ordered by
// family, column, version ascending thanks to the key encoding.
func (s *Store) collect(iter iterator.Iterator, table string, maxVersions int) ([]store.Cell, error) {
	var cells []store.Cell
	var pending []store.Cell // versions of the column being read, ascending

	flush := func() {
		if len(pending) == 0 {
			return
		}
		depth := maxVersions
		if depth <= 0 {
			depth = s.schema.MaxVersions(table, pending[0].Family)
		}
		if len(pending) > depth {
			pending = pending[len(pending)-depth:]
		}
		for i := len(pending) - 1; i >= 0; i-- {
			cells = append(cells, pending[i])
		}
		pending = nil
	}

	for iter.Next() {
		cell, err := decodeCell(iter.Key(), iter.Value())
		if err != nil {
			return nil, err
		}
		if len(pending) > 0 && (pending[0].Family != cell.Family || pending[0].Column != cell.Column) {
			flush()
		}
		pending = append(pending, cell)
	}
	flush()
	if err := iter.Error(); err != nil {
		return nil, store.Unavailable("leveldb scan", err)
	}
	return cells, nil
}

func decodeCell(key, value []byte) (store.Cell, error) {
	segments := splitKey(key)
	if len(segments) != 5 {
		return store.Cell{}, fmt.Errorf("leveldb: malformed cell key %q", key)
	}
	var version int64
	if _, err := fmt.Sscanf(segments[4], "%d", &version); err != nil {
		return store.Cell{}, fmt.Errorf("leveldb: bad version in key %q: %w", key, err)
	}
	return store.Cell{
		Family:  segments[2],
		Column:  segments[3],
		Version: version,
		Value:   append([]byte(nil), value...),
	}, nil
}

func splitKey(key []byte) []string {
	var segments []string
	start := 0
	for i, b := range key {
		if b == 0 {
			segments = append(segments, string(key[start:i]))
			start = i + 1
		}
	}
	return append(segments, string(key[start:]))
}

func (s *Store) DeleteColumn(ctx context.Context, table, rowKey, family, column string) error {
	iter := s.db.NewIterator(util.BytesPrefix(columnPrefix(table, rowKey, family, column)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return store.Unavailable("leveldb delete scan", err)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return store.Unavailable("leveldb delete", err)
	}
	return nil
}

func (s *Store) ScanPrefix(ctx context.Context, table, prefix, start string) store.Iterator {
	rng := util.BytesPrefix([]byte(table + sep + prefix))
	if start != "" && table+sep+start > string(rng.Start) {
		rng.Start = []byte(table + sep + start)
	}
	return &rowIterator{
		store: s,
		table: table,
		start: start,
		iter:  s.db.NewIterator(rng, nil),
	}
}

func (s *Store) Close() error { return s.db.Close() }

// rowIterator groups consecutive cell keys into whole rows.
type rowIterator struct {
	store   *Store
	table   string
	start   string // resume bound on row keys
	iter    iterator.Iterator
	row     store.Row
	peeked  *store.Cell
	peekKey string
	err     error
	done    bool
}

func (it *rowIterator) Next() bool {
	for it.advance() {
		// The range lower bound above is in cell-key space; a row key
		// below start can still own cells sorting after table\0start,
		// so the row key itself is the authoritative bound.
		if it.start == "" || it.row.Key >= it.start {
			return true
		}
	}
	return false
}

func (it *rowIterator) advance() bool {
	if it.done || it.err != nil {
		return false
	}
	var (
		key string
		raw []store.Cell // ascending, as stored
	)
	if it.peeked != nil {
		key = it.peekKey
		raw = append(raw, *it.peeked)
		it.peeked = nil
	}
	for it.iter.Next() {
		segments := splitKey(it.iter.Key())
		if len(segments) != 5 {
			it.err = fmt.Errorf("leveldb: malformed cell key %q", it.iter.Key())
			return false
		}
		cell, err := decodeCell(it.iter.Key(), it.iter.Value())
		if err != nil {
			it.err = err
			return false
		}
		rowKey := segments[1]
		if key == "" {
			key = rowKey
		}
		if rowKey != key {
			it.peeked = &cell
			it.peekKey = rowKey
			break
		}
		raw = append(raw, cell)
	}
	if err := it.iter.Error(); err != nil {
		it.err = store.Unavailable("leveldb scan", err)
		return false
	}
	if len(raw) == 0 {
		it.done = true
		return false
	}
	if it.peeked == nil {
		it.done = true
	}
	it.row = store.Row{Key: key, Cells: capColumns(it.store.schema, it.table, raw)}
	return true
}

// capColumns applies the schema retention bound per column and orders
// versions newest-first, matching GetRow.
func capColumns(schema store.Schema, table string, asc []store.Cell) []store.Cell {
	var out []store.Cell
	var pending []store.Cell
	flush := func() {
		if len(pending) == 0 {
			return
		}
		depth := schema.MaxVersions(table, pending[0].Family)
		if len(pending) > depth {
			pending = pending[len(pending)-depth:]
		}
		for i := len(pending) - 1; i >= 0; i-- {
			out = append(out, pending[i])
		}
		pending = nil
	}
	for _, cell := range asc {
		if len(pending) > 0 && (pending[0].Family != cell.Family || pending[0].Column != cell.Column) {
			flush()
		}
		pending = append(pending, cell)
	}
	flush()
	return out
}

func (it *rowIterator) Row() store.Row { return it.row }
func (it *rowIterator) Error() error   { return it.err }
func (it *rowIterator) Release()       { it.iter.Release() }
