package memstore

import (
	"iter"
	"slices"
	"testing"

	"memDB/internal/index"
	"memDB/internal/sql"
	"memDB/internal/storage"
)

func usersSchema() *sql.Schema {
	return &sql.Schema{
		Table: "users",
		Columns: []sql.Column{
			{Name: "id", Type: sql.TypeInteger, PrimaryKey: true},
			{Name: "name", Type: sql.TypeText, NotNull: true},
			{Name: "score", Type: sql.TypeReal},
		},
		Keys: [][]int{{0}},
	}
}

func user(id int64, name string, score float64) sql.Row {
	return sql.Row{sql.NewInteger(id), sql.NewText(name), sql.NewReal(score)}
}

func collect(t *testing.T, tx storage.Tx, table string) []sql.Row {
	t.Helper()
	_, seq, err := tx.Scan(table)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return slices.Collect(seq)
}

func mustInsert(t *testing.T, store storage.Engine, table string, rows ...sql.Row) {
	t.Helper()
	tx, err := store.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := tx.Insert(table, rows); err != nil {
		_ = store.Rollback(tx)
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Commit(tx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

// TestMemstoreCreateInsertScan verifies that we can create a table,
// insert rows, and read them back with Scan.
func TestMemstoreCreateInsertScan(t *testing.T) {
	store := New()

	if err := store.CreateTable(usersSchema()); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	tx, err := store.Begin(false /* readOnly */)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// Values are coerced to the column's storage class on the way in.
	n, err := tx.Insert("users", []sql.Row{
		{sql.NewText("1"), sql.NewText("Alice"), sql.NewInteger(3)},
		user(2, "Bob", 4.5),
	})
	if err != nil || n != 2 {
		t.Fatalf("Insert failed: n=%d err=%v", n, err)
	}

	// The transaction sees its own staged rows before commit.
	if rows := collect(t, tx, "USERS"); len(rows) != 2 {
		t.Fatalf("expected 2 staged rows, got %d", len(rows))
	}

	if err := store.Commit(tx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	ro, _ := store.Begin(true)
	defer store.Rollback(ro)

	schema, seq, err := ro.Scan("users")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := schema.Names(); !slices.Equal(got, []string{"id", "name", "score"}) {
		t.Fatalf("unexpected columns: %v", got)
	}
	rows := slices.Collect(seq)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != sql.NewInteger(1) || rows[0][2] != sql.NewReal(3) {
		t.Fatalf("unexpected coerced row: %v", rows[0])
	}
	if rows[1][1].S != "Bob" {
		t.Fatalf("unexpected second row: %v", rows[1])
	}
}

func TestMemstoreRollbackDiscards(t *testing.T) {
	store := New()
	_ = store.CreateTable(usersSchema())
	mustInsert(t, store, "users", user(1, "a", 0))

	tx, _ := store.Begin(false)
	if _, err := tx.Insert("users", []sql.Row{user(2, "b", 0)}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Rollback(tx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if err := store.Commit(tx); err == nil {
		t.Fatalf("expected error committing a finished transaction")
	}

	// The rolled-back append shared the backing array; a new append must
	// not see its leftovers.
	mustInsert(t, store, "users", user(3, "c", 0))

	ro, _ := store.Begin(true)
	defer store.Rollback(ro)
	rows := collect(t, ro, "users")
	if len(rows) != 2 || rows[1][0].I64 != 3 {
		t.Fatalf("unexpected rows after rollback: %v", rows)
	}
	if got := slices.Collect(must(ro.SeekEqual("users", 0, sql.NewInteger(2)))); len(got) != 0 {
		t.Fatalf("rolled-back key 2 is still visible through the index: %v", got)
	}
}

func must(seq iter.Seq[sql.Row], err error) iter.Seq[sql.Row] {
	if err != nil {
		panic(err)
	}
	return seq
}

func TestMemstoreInsertValidatesWholeBatch(t *testing.T) {
	store := New()
	_ = store.CreateTable(usersSchema())
	mustInsert(t, store, "users", user(1, "a", 0))

	cases := []struct {
		name string
		rows []sql.Row
		kind sql.ErrorKind
	}{
		{"width", []sql.Row{user(5, "x", 0), {sql.NewInteger(6)}}, sql.ErrColumnCountMismatch},
		{"type", []sql.Row{user(5, "x", 0), {sql.NewText("abc"), sql.NewText("y"), sql.Null}}, sql.ErrTypeMismatch},
		{"not null", []sql.Row{{sql.NewInteger(5), sql.Null, sql.Null}}, sql.ErrConstraintViolation},
		{"duplicate existing", []sql.Row{user(5, "x", 0), user(1, "dup", 0)}, sql.ErrConstraintViolation},
		{"duplicate in batch", []sql.Row{user(7, "x", 0), user(7, "y", 0)}, sql.ErrConstraintViolation},
	}
	for _, c := range cases {
		tx, _ := store.Begin(false)
		if _, err := tx.Insert("users", c.rows); sql.KindOf(err) != c.kind {
			t.Fatalf("%s: expected %v, got %v", c.name, c.kind, err)
		}
		if rows := collect(t, tx, "users"); len(rows) != 1 {
			t.Fatalf("%s: failed insert staged rows: %v", c.name, rows)
		}
		_ = store.Rollback(tx)
	}
}

func TestMemstoreIntegerPrimaryKeyAutofill(t *testing.T) {
	store := New()
	_ = store.CreateTable(usersSchema())
	mustInsert(t, store, "users", user(10, "a", 0))
	mustInsert(t, store, "users",
		sql.Row{sql.Null, sql.NewText("b"), sql.Null},
		sql.Row{sql.Null, sql.NewText("c"), sql.Null},
	)

	ro, _ := store.Begin(true)
	defer store.Rollback(ro)
	rows := collect(t, ro, "users")
	if rows[1][0].I64 != 11 || rows[2][0].I64 != 12 {
		t.Fatalf("expected keys 11 and 12, got %v and %v", rows[1][0], rows[2][0])
	}
}

func TestMemstoreUpdateAndDelete(t *testing.T) {
	store := New()
	_ = store.CreateTable(usersSchema())
	mustInsert(t, store, "users", user(1, "a", 1), user(2, "b", 2), user(3, "c", 3))

	tx, _ := store.Begin(false)
	n, err := tx.Update("users", func(r sql.Row) (sql.Row, bool, error) {
		if r[0].I64 < 2 {
			return r, false, nil
		}
		// The closure may read the table it is updating.
		if rows := collect(t, tx, "users"); len(rows) != 3 {
			t.Fatalf("expected 3 rows inside update, got %d", len(rows))
		}
		out := r.Clone()
		out[2] = sql.NewInteger(r[0].I64 * 10)
		return out, true, nil
	})
	if err != nil || n != 2 {
		t.Fatalf("Update failed: n=%d err=%v", n, err)
	}

	n, err = tx.Delete("users", func(r sql.Row) (bool, error) { return r[0].I64 == 1, nil })
	if err != nil || n != 1 {
		t.Fatalf("Delete failed: n=%d err=%v", n, err)
	}
	if err := store.Commit(tx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	ro, _ := store.Begin(true)
	defer store.Rollback(ro)
	rows := collect(t, ro, "users")
	if len(rows) != 2 || rows[0][2] != sql.NewReal(20) || rows[1][2] != sql.NewReal(30) {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestMemstoreUpdateUniqueViolation(t *testing.T) {
	store := New()
	_ = store.CreateTable(usersSchema())
	mustInsert(t, store, "users", user(1, "a", 0), user(2, "b", 0))

	tx, _ := store.Begin(false)
	defer store.Rollback(tx)
	_, err := tx.Update("users", func(r sql.Row) (sql.Row, bool, error) {
		out := r.Clone()
		out[0] = sql.NewInteger(9)
		return out, true, nil
	})
	if sql.KindOf(err) != sql.ErrConstraintViolation {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestMemstoreCatalog(t *testing.T) {
	store := New()
	if err := store.CreateTable(usersSchema()); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	dup := usersSchema()
	dup.Table = "Users"
	if err := store.CreateTable(dup); sql.KindOf(err) != sql.ErrTableAlreadyExists {
		t.Fatalf("expected TableAlreadyExists, got %v", err)
	}
	_ = store.CreateTable(&sql.Schema{Table: "a", Columns: []sql.Column{{Name: "x"}}})

	if got := store.ListTables(); !slices.Equal(got, []string{"a", "users"}) {
		t.Fatalf("unexpected tables: %v", got)
	}
	if _, err := store.TableSchema("nope"); sql.KindOf(err) != sql.ErrUnknownTable {
		t.Fatalf("expected UnknownTable, got %v", err)
	}

	tx, _ := store.Begin(false)
	if _, err := tx.Insert("nope", []sql.Row{{sql.Null}}); sql.KindOf(err) != sql.ErrUnknownTable {
		t.Fatalf("expected UnknownTable on insert, got %v", err)
	}
	_ = store.Rollback(tx)

	if err := store.DropTable("USERS"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if err := store.DropTable("users"); sql.KindOf(err) != sql.ErrUnknownTable {
		t.Fatalf("expected UnknownTable, got %v", err)
	}
}

func TestMemstoreCreateIndex(t *testing.T) {
	store := New()
	_ = store.CreateTable(usersSchema())
	mustInsert(t, store, "users", user(10, "x", 1), user(20, "y", 2), user(30, "x", 3))

	if err := store.CreateIndex(index.Meta{Name: "idx_name", Table: "users", Columns: []string{"name"}}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := store.CreateIndex(index.Meta{Name: "IDX_NAME", Table: "users", Columns: []string{"id"}}); sql.KindOf(err) != sql.ErrIndexAlreadyExists {
		t.Fatalf("expected IndexAlreadyExists, got %v", err)
	}
	if err := store.CreateIndex(index.Meta{Name: "idx_u", Table: "users", Columns: []string{"name"}, Unique: true}); sql.KindOf(err) != sql.ErrConstraintViolation {
		t.Fatalf("expected unique index over duplicates to fail, got %v", err)
	}
	if err := store.CreateIndex(index.Meta{Name: "idx_bad", Table: "users", Columns: []string{"nope"}}); sql.KindOf(err) != sql.ErrUnknownColumn {
		t.Fatalf("expected UnknownColumn, got %v", err)
	}

	// Lookups return rows in scan order, including rows appended after the
	// index was built.
	mustInsert(t, store, "users", user(40, "x", 4))
	ro, _ := store.Begin(true)
	seq, err := ro.SeekEqual("users", 1, sql.NewText("x"))
	if err != nil {
		t.Fatalf("SeekEqual failed: %v", err)
	}
	var ids []int64
	for r := range seq {
		ids = append(ids, r[0].I64)
	}
	_ = store.Rollback(ro)
	if !slices.Equal(ids, []int64{10, 30, 40}) {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if err := store.DropIndex("idx_name"); err != nil {
		t.Fatalf("DropIndex failed: %v", err)
	}
	if err := store.DropIndex("idx_name"); sql.KindOf(err) != sql.ErrUnknownIndex {
		t.Fatalf("expected UnknownIndex, got %v", err)
	}
}

func TestMemstoreUniqueIndexEnforced(t *testing.T) {
	store := New()
	_ = store.CreateTable(usersSchema())
	mustInsert(t, store, "users", user(1, "a", 0))
	if err := store.CreateIndex(index.Meta{Name: "u_name", Table: "users", Columns: []string{"name"}, Unique: true}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	tx, _ := store.Begin(false)
	defer store.Rollback(tx)
	if _, err := tx.Insert("users", []sql.Row{user(2, "a", 0)}); sql.KindOf(err) != sql.ErrConstraintViolation {
		t.Fatalf("expected unique index violation, got %v", err)
	}
}
