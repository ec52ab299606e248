package mysql

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"feedline/internal/ports/store"
)

// cell is one versioned value, modelled as a row of the cells table. The
// composite primary key keeps puts idempotent: rewriting an existing
// (table, row, family, column, version) is an upsert, not a duplicate.
type cell struct {
	Tbl     string `gorm:"column:tbl;type:varchar(32);primaryKey"`
	RowKey  string `gorm:"column:row_key;type:varchar(191);primaryKey"`
	Family  string `gorm:"column:family;type:varchar(32);primaryKey"`
	Col     string `gorm:"column:col;type:varchar(191);primaryKey"`
	Version int64  `gorm:"column:version;primaryKey;autoIncrement:false"`
	Value   []byte `gorm:"column:value;type:blob"`
}

func (cell) TableName() string { return "cells" }

// Store is a ColumnStore over MySQL. The composite index makes row_key
// range predicates cheap, which is all a prefix scan needs.
type Store struct {
	db     *gorm.DB
	schema store.Schema
}

func Open(dsn string, schema store.Schema) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}
	if err := db.AutoMigrate(&cell{}); err != nil {
		return nil, fmt.Errorf("mysql migrate: %w", err)
	}
	return &Store{db: db, schema: schema}, nil
}

func (s *Store) PutRow(ctx context.Context, table, rowKey, family, column string, version int64, value []byte) error {
	c := cell{Tbl: table, RowKey: rowKey, Family: family, Col: column, Version: version, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&c).Error
	if err != nil {
		return store.Unavailable("mysql put", err)
	}
	return s.trim(ctx, table, rowKey, family, column)
}

// trim deletes the oldest versions of a column beyond the schema bound.
func (s *Store) trim(ctx context.Context, table, rowKey, family, column string) error {
	max := s.schema.MaxVersions(table, family)
	var versions []int64
	err := s.db.WithContext(ctx).Model(&cell{}).
		Where("tbl = ? AND row_key = ? AND family = ? AND col = ?", table, rowKey, family, column).
		Order("version DESC").
		Pluck("version", &versions).Error
	if err != nil {
		return store.Unavailable("mysql trim", err)
	}
	if len(versions) <= max {
		return nil
	}
	err = s.db.WithContext(ctx).
		Where("tbl = ? AND row_key = ? AND family = ? AND col = ? AND version <= ?",
			table, rowKey, family, column, versions[max]).
		Delete(&cell{}).Error
	if err != nil {
		return store.Unavailable("mysql trim", err)
	}
	return nil
}

func (s *Store) GetRow(ctx context.Context, table, rowKey, family string, maxVersions int) ([]store.Cell, error) {
	query := s.db.WithContext(ctx).Model(&cell{}).
		Where("tbl = ? AND row_key = ?", table, rowKey)
	if family != "" {
		query = query.Where("family = ?", family)
	}
	var rows []cell
	if err := query.Order("family, col, version DESC").Find(&rows).Error; err != nil {
		return nil, store.Unavailable("mysql get row", err)
	}
	return s.capVersions(table, rows, maxVersions), nil
}

// capVersions applies the per-column version cap to rows that arrive
// ordered by family, column, version descending.
func (s *Store) capVersions(table string, rows []cell, maxVersions int) []store.Cell {
	var cells []store.Cell
	var lastFam, lastCol string
	kept := 0
	for _, r := range rows {
		if r.Family != lastFam || r.Col != lastCol {
			lastFam, lastCol = r.Family, r.Col
			kept = 0
		}
		depth := maxVersions
		if depth <= 0 {
			depth = s.schema.MaxVersions(table, r.Family)
		}
		if kept >= depth {
			continue
		}
		kept++
		cells = append(cells, store.Cell{
			Family:  r.Family,
			Column:  r.Col,
			Version: r.Version,
			Value:   append([]byte(nil), r.Value...),
		})
	}
	return cells
}

func (s *Store) DeleteColumn(ctx context.Context, table, rowKey, family, column string) error {
	err := s.db.WithContext(ctx).
		Where("tbl = ? AND row_key = ? AND family = ? AND col = ?", table, rowKey, family, column).
		Delete(&cell{}).Error
	if err != nil {
		return store.Unavailable("mysql delete", err)
	}
	return nil
}

const scanPage = 64

func (s *Store) ScanPrefix(ctx context.Context, table, prefix, start string) store.Iterator {
	lower := prefix
	if start != "" && start > lower {
		lower = start
	}
	return &rowIterator{store: s, ctx: ctx, table: table, prefix: prefix, lower: lower}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type rowIterator struct {
	store  *Store
	ctx    context.Context
	table  string
	prefix string
	lower  string // inclusive lower bound for the next page
	skip   string // last row key already returned
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
	query := it.store.db.WithContext(it.ctx).Model(&cell{}).
		Distinct("row_key").
		Where("tbl = ? AND row_key LIKE ?", it.table, escapeLike(it.prefix)+"%")
	if it.skip != "" {
		query = query.Where("row_key > ?", it.skip)
	} else if it.lower != "" {
		query = query.Where("row_key >= ?", it.lower)
	}
	var keys []string
	if err := query.Order("row_key").Limit(scanPage).Pluck("row_key", &keys).Error; err != nil {
		it.err = store.Unavailable("mysql scan", err)
		return false
	}
	if len(keys) == 0 {
		it.done = true
		return false
	}
	it.page = keys
	it.pos = 0
	it.skip = keys[len(keys)-1]
	return true
}

// escapeLike guards LIKE metacharacters in row key prefixes.
func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}

func (it *rowIterator) Row() store.Row { return it.row }
func (it *rowIterator) Error() error   { return it.err }
func (it *rowIterator) Release()       {}
