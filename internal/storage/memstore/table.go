package memstore

import (
	"strconv"
	"strings"
	"sync"

	"memDB/internal/index"
	"memDB/internal/sql"
)

// table is an immutable snapshot of one table's contents. Writers never
// modify a published table; they derive a new one and publish it on commit.
//
// Deriving by append shares the backing array of rows: the derived table
// writes past len(rows) of its parent, which parent readers never look at.
// The engine admits one writer at a time, so two derivations never race for
// the same slots.
type table struct {
	schema *sql.Schema
	rows   []sql.Row

	mu     sync.Mutex
	hashes map[string]*index.Hash // key: hashKey(cols)
}

func newTable(schema *sql.Schema, rows []sql.Row) *table {
	return &table{schema: schema, rows: rows, hashes: make(map[string]*index.Hash)}
}

// appendRows derives a table holding t's rows followed by rows. The derived
// table takes over t's hash indexes and extends them lazily.
func (t *table) appendRows(rows []sql.Row) *table {
	next := newTable(t.schema, append(t.rows, rows...))
	t.mu.Lock()
	next.hashes, t.hashes = t.hashes, make(map[string]*index.Hash)
	t.mu.Unlock()
	return next
}

func hashKey(cols []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// hashLocked returns an index over cols that covers every row of t.
// t.mu must be held.
func (t *table) hashLocked(cols []int) *index.Hash {
	k := hashKey(cols)
	h, ok := t.hashes[k]
	if !ok {
		h = index.NewHash(cols)
		t.hashes[k] = h
	}
	if h.Size() < len(t.rows) {
		h.Extend(t.rows)
	}
	return h
}

// search returns the positions of rows whose cols encode to key.
func (t *table) search(cols []int, key string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hashLocked(cols).Search(key)
}

// warm builds the index over cols ahead of the first lookup.
func (t *table) warm(cols []int) {
	t.mu.Lock()
	t.hashLocked(cols)
	t.mu.Unlock()
}

// checkAppend reports the first uniqueness violation that appending rows to
// t would cause, either against existing rows or within rows itself.
func (t *table) checkAppend(keys [][]int, rows []sql.Row) error {
	if len(keys) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, cols := range keys {
		existing := t.hashLocked(cols)
		seen := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			key, ok := existing.Key(r)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup || len(existing.Search(key)) > 0 {
				return uniqueViolation(t.schema, cols)
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}

// checkRows reports the first uniqueness violation among rows, which are a
// table's complete new contents.
func checkRows(schema *sql.Schema, keys [][]int, rows []sql.Row) (map[string]*index.Hash, error) {
	hashes := make(map[string]*index.Hash, len(keys))
	for _, cols := range keys {
		h := index.Build(cols, rows)
		if _, dup := h.Duplicate(); dup {
			return nil, uniqueViolation(schema, cols)
		}
		hashes[hashKey(cols)] = h
	}
	return hashes, nil
}

func uniqueViolation(schema *sql.Schema, cols []int) error {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = schema.Table + "." + schema.Columns[c].Name
	}
	return sql.Errorf(sql.ErrConstraintViolation, "UNIQUE constraint failed: %s", strings.Join(names, ", "))
}
