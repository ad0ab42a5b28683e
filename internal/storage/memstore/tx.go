package memstore

import (
	"iter"
	"slices"

	"memDB/internal/index"
	"memDB/internal/sql"
)

// memTx stages whole tables: the first write to a table derives a private
// copy, later reads and writes in the same transaction go to that copy, and
// Commit swaps the copies in.
type memTx struct {
	eng      *memEngine
	readOnly bool
	done     bool

	staged map[string]*table // key: folded table name
	base   map[string]*table // published table each staged one derives from
}

func (tx *memTx) writable() error {
	if tx.done {
		return sql.Errorf(sql.ErrInternal, "transaction already finished")
	}
	if tx.readOnly {
		return sql.Errorf(sql.ErrInternal, "cannot write in a read-only transaction")
	}
	return nil
}

// table resolves name to the version this transaction sees.
func (tx *memTx) table(name string) (string, *table, error) {
	k := index.FoldName(name)
	if t, ok := tx.staged[k]; ok {
		return k, t, nil
	}
	tx.eng.mu.RLock()
	t, ok := tx.eng.tables[k]
	tx.eng.mu.RUnlock()
	if !ok {
		return "", nil, sql.Errorf(sql.ErrUnknownTable, "no such table: %s", name)
	}
	return k, t, nil
}

func (tx *memTx) stage(k string, cur, next *table) {
	if _, ok := tx.base[k]; !ok {
		tx.base[k] = cur
	}
	tx.staged[k] = next
}

// Insert adds rows to a table inside this transaction. Nothing is staged
// unless every row is valid.
func (tx *memTx) Insert(name string, rows []sql.Row) (int, error) {
	if err := tx.writable(); err != nil {
		return 0, err
	}
	k, t, err := tx.table(name)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	coerced := make([]sql.Row, len(rows))
	for i, r := range rows {
		c, err := t.schema.CoerceRow(r)
		if err != nil {
			return 0, err
		}
		coerced[i] = c
	}
	if col := t.schema.RowIDColumn(); col >= 0 {
		assignRowIDs(t.rows, coerced, col)
	}

	if err := t.checkAppend(tx.eng.uniqueKeys(t.schema), coerced); err != nil {
		return 0, err
	}
	tx.stage(k, t, t.appendRows(coerced))
	return len(coerced), nil
}

// assignRowIDs fills a NULL INTEGER PRIMARY KEY with one more than the
// largest key present, the way an implicit rowid behaves.
func assignRowIDs(existing, rows []sql.Row, col int) {
	if !slices.ContainsFunc(rows, func(r sql.Row) bool { return r[col].IsNull() }) {
		return
	}
	var next int64 = 1
	for _, set := range [][]sql.Row{existing, rows} {
		for _, r := range set {
			if v := r[col]; v.Type == sql.TypeInteger && v.I64 >= next {
				next = v.I64 + 1
			}
		}
	}
	for _, r := range rows {
		if r[col].IsNull() {
			r[col] = sql.NewInteger(next)
			next++
		}
	}
}

// Scan returns the schema and an iterator over the rows this transaction
// sees. The iterator reads a fixed snapshot and may be restarted.
func (tx *memTx) Scan(name string) (*sql.Schema, iter.Seq[sql.Row], error) {
	if tx.done {
		return nil, nil, sql.Errorf(sql.ErrInternal, "transaction already finished")
	}
	_, t, err := tx.table(name)
	if err != nil {
		return nil, nil, err
	}
	return t.schema, rowSeq(t.rows), nil
}

func rowSeq(rows []sql.Row) iter.Seq[sql.Row] {
	return func(yield func(sql.Row) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}

// SeekEqual looks rows up through a hash index on column. The index is
// built on first use and kept with the table until it is rewritten.
func (tx *memTx) SeekEqual(name string, column int, v sql.Value) (iter.Seq[sql.Row], error) {
	if tx.done {
		return nil, sql.Errorf(sql.ErrInternal, "transaction already finished")
	}
	_, t, err := tx.table(name)
	if err != nil {
		return nil, err
	}
	if column < 0 || column >= len(t.schema.Columns) {
		return nil, sql.Errorf(sql.ErrInternal, "column %d out of range for table %s", column, t.schema.Table)
	}
	key, ok := index.ValueKey(v)
	if !ok {
		return rowSeq(nil), nil
	}

	positions := t.search([]int{column}, key)
	rows := t.rows
	return func(yield func(sql.Row) bool) {
		for _, pos := range positions {
			if pos < len(rows) && !yield(rows[pos]) {
				return
			}
		}
	}, nil
}

// Update replaces rows for which fn reports a change. fn runs without any
// storage lock held, so it may read the same table through this
// transaction.
func (tx *memTx) Update(name string, fn func(sql.Row) (sql.Row, bool, error)) (int, error) {
	if err := tx.writable(); err != nil {
		return 0, err
	}
	k, t, err := tx.table(name)
	if err != nil {
		return 0, err
	}

	out := make([]sql.Row, len(t.rows))
	changed := 0
	for i, r := range t.rows {
		nr, ok, err := fn(r)
		if err != nil {
			return 0, err
		}
		if !ok {
			out[i] = r
			continue
		}
		c, err := t.schema.CoerceRow(nr)
		if err != nil {
			return 0, err
		}
		out[i] = c
		changed++
	}
	if changed == 0 {
		return 0, nil
	}

	hashes, err := checkRows(t.schema, tx.eng.uniqueKeys(t.schema), out)
	if err != nil {
		return 0, err
	}
	next := newTable(t.schema, out)
	next.hashes = hashes
	tx.stage(k, t, next)
	return changed, nil
}

// Delete removes rows for which pred returns true.
func (tx *memTx) Delete(name string, pred func(sql.Row) (bool, error)) (int, error) {
	if err := tx.writable(); err != nil {
		return 0, err
	}
	k, t, err := tx.table(name)
	if err != nil {
		return 0, err
	}

	out := make([]sql.Row, 0, len(t.rows))
	for _, r := range t.rows {
		del, err := pred(r)
		if err != nil {
			return 0, err
		}
		if !del {
			out = append(out, r)
		}
	}
	deleted := len(t.rows) - len(out)
	if deleted == 0 {
		return 0, nil
	}
	tx.stage(k, t, newTable(t.schema, out))
	return deleted, nil
}
