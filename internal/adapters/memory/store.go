package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"feedline/internal/ports/store"
)

// Store is a mutex-guarded in-memory ColumnStore. It backs every package
// test and doubles as an embedded backend for single-process runs; nothing
// is persisted.
type Store struct {
	mu     sync.RWMutex
	schema store.Schema
	tables map[string]map[string]tableRow // table -> rowKey -> row
}

type version struct {
	ts    int64
	value []byte
}

// tableRow maps family -> column -> versions sorted ascending by timestamp.
type tableRow map[string]map[string][]version

func NewStore(schema store.Schema) *Store {
	return &Store{
		schema: schema,
		tables: make(map[string]map[string]tableRow),
	}
}

func (s *Store) PutRow(ctx context.Context, table, rowKey, family, column string, ver int64, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]tableRow)
		s.tables[table] = rows
	}
	row, ok := rows[rowKey]
	if !ok {
		row = make(tableRow)
		rows[rowKey] = row
	}
	cols, ok := row[family]
	if !ok {
		cols = make(map[string][]version)
		row[family] = cols
	}

	val := append([]byte(nil), value...)
	versions := cols[column]
	idx := sort.Search(len(versions), func(i int) bool { return versions[i].ts >= ver })
	if idx < len(versions) && versions[idx].ts == ver {
		versions[idx].value = val
	} else {
		versions = append(versions, version{})
		copy(versions[idx+1:], versions[idx:])
		versions[idx] = version{ts: ver, value: val}
	}

	// Retention: drop oldest versions beyond the schema bound.
	if max := s.schema.MaxVersions(table, family); len(versions) > max {
		versions = append([]version(nil), versions[len(versions)-max:]...)
	}
	cols[column] = versions
	return nil
}

func (s *Store) GetRow(ctx context.Context, table, rowKey, family string, maxVersions int) ([]store.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, nil
	}
	row, ok := rows[rowKey]
	if !ok {
		return nil, nil
	}
	return s.assemble(table, row, family, maxVersions), nil
}

// assemble flattens a row into cells ordered by family, column, version
// descending. Callers must hold at least the read lock.
func (s *Store) assemble(table string, row tableRow, family string, maxVersions int) []store.Cell {
	families := make([]string, 0, len(row))
	for fam := range row {
		if family != "" && fam != family {
			continue
		}
		families = append(families, fam)
	}
	sort.Strings(families)

	var cells []store.Cell
	for _, fam := range families {
		depth := maxVersions
		if depth <= 0 {
			depth = s.schema.MaxVersions(table, fam)
		}
		cols := row[fam]
		names := make([]string, 0, len(cols))
		for name := range cols {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			versions := cols[name]
			for i := len(versions) - 1; i >= 0 && len(versions)-1-i < depth; i-- {
				cells = append(cells, store.Cell{
					Family:  fam,
					Column:  name,
					Version: versions[i].ts,
					Value:   append([]byte(nil), versions[i].value...),
				})
			}
		}
	}
	return cells
}

func (s *Store) DeleteColumn(ctx context.Context, table, rowKey, family, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil
	}
	row, ok := rows[rowKey]
	if !ok {
		return nil
	}
	if cols, ok := row[family]; ok {
		delete(cols, column)
		if len(cols) == 0 {
			delete(row, family)
		}
	}
	if len(row) == 0 {
		delete(rows, rowKey)
	}
	return nil
}

func (s *Store) ScanPrefix(ctx context.Context, table, prefix, start string) store.Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Snapshot matching rows up front; scans see a point-in-time view.
	var snapshot []store.Row
	if rows, ok := s.tables[table]; ok {
		keys := make([]string, 0, len(rows))
		for key := range rows {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if start != "" && key < start {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			snapshot = append(snapshot, store.Row{Key: key, Cells: s.assemble(table, rows[key], "", 0)})
		}
	}
	return &iterator{rows: snapshot}
}

func (s *Store) Close() error { return nil }

type iterator struct {
	rows []store.Row
	pos  int
}

func (it *iterator) Next() bool {
	if it.pos >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *iterator) Row() store.Row { return it.rows[it.pos-1] }
func (it *iterator) Error() error   { return nil }
func (it *iterator) Release()       {}
