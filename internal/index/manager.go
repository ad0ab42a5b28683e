package index

import (
	"slices"
	"strings"
	"sync"

	"memDB/internal/sql"
)

// Manager keeps the catalog of declared indexes. Names are unique across
// the whole database and case-insensitive.
type Manager struct {
	mu      sync.RWMutex
	indexes map[string]Meta // key: folded index name
}

// NewManager creates an empty index catalog.
func NewManager() *Manager {
	return &Manager{indexes: make(map[string]Meta)}
}

// Create registers meta. It fails with IndexAlreadyExists when the name is
// taken.
func (m *Manager) Create(meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := FoldName(meta.Name)
	if _, ok := m.indexes[k]; ok {
		return sql.Errorf(sql.ErrIndexAlreadyExists, "index %s already exists", meta.Name)
	}
	meta.Columns = slices.Clone(meta.Columns)
	m.indexes[k] = meta
	return nil
}

// Drop removes the named index and returns its definition.
func (m *Manager) Drop(name string) (Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := FoldName(name)
	meta, ok := m.indexes[k]
	if !ok {
		return Meta{}, sql.Errorf(sql.ErrUnknownIndex, "no such index: %s", name)
	}
	delete(m.indexes, k)
	return meta, nil
}

// Get looks up an index by name.
func (m *Manager) Get(name string) (Meta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.indexes[FoldName(name)]
	return meta, ok
}

// ForTable returns the indexes declared on table, ordered by name.
func (m *Manager) ForTable(table string) []Meta {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t := FoldName(table)
	var out []Meta
	for _, meta := range m.indexes {
		if FoldName(meta.Table) == t {
			out = append(out, meta)
		}
	}
	slices.SortFunc(out, func(a, b Meta) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// DropTable removes every index on table, returning what was removed.
func (m *Manager) DropTable(table string) []Meta {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := FoldName(table)
	var dropped []Meta
	for k, meta := range m.indexes {
		if FoldName(meta.Table) == t {
			dropped = append(dropped, meta)
			delete(m.indexes, k)
		}
	}
	return dropped
}

// Len returns the number of declared indexes.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indexes)
}
