package index

import (
	"memDB/internal/sql"

	"golang.org/x/text/cases"
)

// Meta carries basic information about a declared index.
type Meta struct {
	Name    string   // e.g. "idx_users_email"
	Table   string   // e.g. "users"
	Columns []string // e.g. ["email"]
	Unique  bool
}

// FoldName normalizes a catalog name (table or index) for case-insensitive
// lookup. A Caser is stateful, so each call gets its own.
func FoldName(name string) string {
	return cases.Fold().String(name)
}

// Hash maps the normalized key of a column tuple to the positions of the rows
// holding it. Positions are appended in increasing order, so a Search result
// is already in scan order.
//
// A Hash only ever grows: Extend indexes rows that were appended since the
// last call. Callers that rewrite rows in place must build a new Hash.
type Hash struct {
	cols    []int
	entries map[string][]int
	size    int // rows [0, size) have been indexed
	buf     []byte
}

// NewHash returns an empty index over the given column positions.
func NewHash(cols []int) *Hash {
	return &Hash{cols: cols, entries: make(map[string][]int)}
}

// Build indexes every row.
func Build(cols []int, rows []sql.Row) *Hash {
	h := NewHash(cols)
	h.Extend(rows)
	return h
}

// Columns returns the indexed column positions.
func (h *Hash) Columns() []int { return h.cols }

// Size reports how many leading rows have been indexed.
func (h *Hash) Size() int { return h.size }

// Key returns the index key of row. ok is false when any key column is NULL;
// such rows are never equal to anything and are left out of the index.
func (h *Hash) Key(row sql.Row) (key string, ok bool) {
	h.buf = h.buf[:0]
	for _, c := range h.cols {
		if row[c].IsNull() {
			return "", false
		}
		h.buf = sql.AppendKey(h.buf, row[c])
	}
	return string(h.buf), true
}

// ValueKey returns the key for a single-column lookup value.
func ValueKey(v sql.Value) (string, bool) {
	if v.IsNull() {
		return "", false
	}
	return string(sql.AppendKey(nil, v)), true
}

// Extend indexes rows[h.Size():].
func (h *Hash) Extend(rows []sql.Row) {
	for pos := h.size; pos < len(rows); pos++ {
		if key, ok := h.Key(rows[pos]); ok {
			h.entries[key] = append(h.entries[key], pos)
		}
	}
	if len(rows) > h.size {
		h.size = len(rows)
	}
}

// Search returns all row positions for a key. The result must not be
// modified.
func (h *Hash) Search(key string) []int {
	return h.entries[key]
}

// Duplicate returns a key held by more than one row, if any.
func (h *Hash) Duplicate() (string, bool) {
	for k, pos := range h.entries {
		if len(pos) > 1 {
			return k, true
		}
	}
	return "", false
}
