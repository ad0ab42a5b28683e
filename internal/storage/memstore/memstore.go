package memstore

import (
	"slices"
	"strings"
	"sync"

	"memDB/internal/index"
	"memDB/internal/logging"
	"memDB/internal/sql"
	"memDB/internal/storage"
)

type memEngine struct {
	mu      sync.RWMutex
	tables  map[string]*table // key: folded table name
	indexes *index.Manager

	// writer admits one read-write transaction at a time.
	writer sync.Mutex
}

// New creates a new in-memory storage engine.
func New() storage.Engine {
	return &memEngine{
		tables:  make(map[string]*table),
		indexes: index.NewManager(),
	}
}

// Begin starts a new transaction. A read-write transaction blocks until the
// previous one has committed or rolled back.
func (e *memEngine) Begin(readOnly bool) (storage.Tx, error) {
	if !readOnly {
		e.writer.Lock()
	}
	return &memTx{
		eng:      e,
		readOnly: readOnly,
		staged:   make(map[string]*table),
		base:     make(map[string]*table),
	}, nil
}

func (e *memEngine) finish(tx storage.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok || mt.eng != e {
		return nil, sql.Errorf(sql.ErrInternal, "transaction does not belong to this engine")
	}
	if mt.done {
		return nil, sql.Errorf(sql.ErrInternal, "transaction already finished")
	}
	mt.done = true
	if !mt.readOnly {
		e.writer.Unlock()
	}
	return mt, nil
}

// Commit publishes every table the transaction staged. Either all of them
// become visible or, when one was dropped or replaced meanwhile, none do.
func (e *memEngine) Commit(tx storage.Tx) error {
	mt, err := e.finish(tx)
	if err != nil {
		return err
	}
	if len(mt.staged) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for k, st := range mt.staged {
		if e.tables[k] != mt.base[k] {
			return sql.Errorf(sql.ErrInternal, "table %s was modified by another transaction", st.schema.Table)
		}
	}
	for k, st := range mt.staged {
		e.tables[k] = st
	}
	return nil
}

// Rollback aborts a transaction and discards its staged tables.
func (e *memEngine) Rollback(tx storage.Tx) error {
	_, err := e.finish(tx)
	return err
}

// CreateTable registers an empty table.
func (e *memEngine) CreateTable(schema *sql.Schema) error {
	if len(schema.Columns) == 0 {
		return sql.Errorf(sql.ErrInternal, "table %s must have at least one column", schema.Table)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	k := index.FoldName(schema.Table)
	if _, exists := e.tables[k]; exists {
		return sql.Errorf(sql.ErrTableAlreadyExists, "table %s already exists", schema.Table)
	}

	own := &sql.Schema{
		Table:   schema.Table,
		Columns: slices.Clone(schema.Columns),
		Keys:    slices.Clone(schema.Keys),
	}
	e.tables[k] = newTable(own, nil)

	logging.WithTable(schema.Table).Debug("table created", "columns", len(own.Columns), "keys", len(own.Keys))
	return nil
}

// DropTable removes a table and the indexes declared on it.
func (e *memEngine) DropTable(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := index.FoldName(name)
	if _, ok := e.tables[k]; !ok {
		return sql.Errorf(sql.ErrUnknownTable, "no such table: %s", name)
	}
	delete(e.tables, k)
	dropped := e.indexes.DropTable(name)

	logging.WithTable(name).Debug("table dropped", "indexes", len(dropped))
	return nil
}

// CreateIndex declares an index and builds it right away. A UNIQUE index
// over columns that already hold duplicates is rejected.
func (e *memEngine) CreateIndex(meta index.Meta) error {
	e.mu.RLock()
	t, ok := e.tables[index.FoldName(meta.Table)]
	e.mu.RUnlock()
	if !ok {
		return sql.Errorf(sql.ErrUnknownTable, "no such table: %s", meta.Table)
	}

	cols, err := columnPositions(t.schema, meta.Columns)
	if err != nil {
		return err
	}
	if _, exists := e.indexes.Get(meta.Name); exists {
		return sql.Errorf(sql.ErrIndexAlreadyExists, "index %s already exists", meta.Name)
	}
	if meta.Unique {
		if _, err := checkRows(t.schema, [][]int{cols}, t.rows); err != nil {
			return err
		}
	}

	meta.Table = t.schema.Table
	if err := e.indexes.Create(meta); err != nil {
		return err
	}
	t.warm(cols)

	logging.WithIndex(meta.Name).Debug("index created", "table", meta.Table, "columns", strings.Join(meta.Columns, ","), "unique", meta.Unique)
	return nil
}

// DropIndex removes a declared index.
func (e *memEngine) DropIndex(name string) error {
	meta, err := e.indexes.Drop(name)
	if err != nil {
		return err
	}
	logging.WithIndex(meta.Name).Debug("index dropped", "table", meta.Table)
	return nil
}

// ListTables returns table names in sorted order.
func (e *memEngine) ListTables() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.tables))
	for _, t := range e.tables {
		names = append(names, t.schema.Table)
	}
	slices.Sort(names)
	return names
}

// TableSchema returns a table's schema. The result must not be modified.
func (e *memEngine) TableSchema(name string) (*sql.Schema, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, ok := e.tables[index.FoldName(name)]
	if !ok {
		return nil, sql.Errorf(sql.ErrUnknownTable, "no such table: %s", name)
	}
	return t.schema, nil
}

// uniqueKeys lists the column sets of schema that must hold distinct
// values: PRIMARY KEY and UNIQUE constraints plus UNIQUE indexes.
func (e *memEngine) uniqueKeys(schema *sql.Schema) [][]int {
	keys := schema.Keys
	for _, meta := range e.indexes.ForTable(schema.Table) {
		if !meta.Unique {
			continue
		}
		if cols, err := columnPositions(schema, meta.Columns); err == nil {
			keys = append(slices.Clip(keys), cols)
		}
	}
	return keys
}

func columnPositions(schema *sql.Schema, names []string) ([]int, error) {
	cols := make([]int, len(names))
	for i, n := range names {
		pos := schema.ColumnIndex(n)
		if pos < 0 {
			return nil, sql.Errorf(sql.ErrUnknownColumn, "table %s has no column named %s", schema.Table, n)
		}
		cols[i] = pos
	}
	return cols, nil
}
